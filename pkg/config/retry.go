// SPDX-License-Identifier: AGPL-3.0
// Copyright 2025 Kadir Pekel
//
// Licensed under the GNU Affero General Public License v3.0 (AGPL-3.0) (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.gnu.org/licenses/agpl-3.0.en.html
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"fmt"
	"net/http"
	"time"

	"github.com/kadirpekel/toddleops/pkg/httpclient"
)

// RetryConfig is the retry policy for transient model errors.
//
// The wait before attempt n+1 is initial_delay * exp_base^(n-1).
type RetryConfig struct {
	// Attempts is the total number of tries, including the first.
	Attempts int `yaml:"attempts,omitempty" json:"attempts,omitempty" jsonschema:"title=Attempts,minimum=1,default=4"`

	// ExpBase multiplies the delay after every failed attempt.
	ExpBase float64 `yaml:"exp_base,omitempty" json:"exp_base,omitempty" jsonschema:"title=Backoff Base,minimum=1,default=7"`

	// InitialDelay is the wait before the second attempt.
	InitialDelay time.Duration `yaml:"initial_delay,omitempty" json:"initial_delay,omitempty" jsonschema:"title=Initial Delay,default=1s"`

	// MaxDelay caps a single wait.
	MaxDelay time.Duration `yaml:"max_delay,omitempty" json:"max_delay,omitempty" jsonschema:"title=Max Delay,default=2m"`

	// HTTPStatusCodes lists the statuses worth retrying.
	HTTPStatusCodes []int `yaml:"http_status_codes,omitempty" json:"http_status_codes,omitempty" jsonschema:"title=Retryable Status Codes"`

	// Timeout bounds one HTTP request, retries excluded.
	Timeout time.Duration `yaml:"timeout,omitempty" json:"timeout,omitempty" jsonschema:"title=Request Timeout,default=5m"`
}

// SetDefaults applies the default policy to unset fields.
func (c *RetryConfig) SetDefaults() {
	def := httpclient.DefaultPolicy()
	if c.Attempts == 0 {
		c.Attempts = def.Attempts
	}
	if c.ExpBase == 0 {
		c.ExpBase = def.ExpBase
	}
	if c.InitialDelay == 0 {
		c.InitialDelay = def.InitialDelay
	}
	if c.MaxDelay == 0 {
		c.MaxDelay = def.MaxDelay
	}
	if len(c.HTTPStatusCodes) == 0 {
		c.HTTPStatusCodes = def.StatusCodes
	}
	if c.Timeout == 0 {
		c.Timeout = 5 * time.Minute
	}
}

// Validate checks the retry configuration.
func (c *RetryConfig) Validate() error {
	if c.Attempts < 1 {
		return fmt.Errorf("attempts must be at least 1, got %d", c.Attempts)
	}
	if c.ExpBase < 1 {
		return fmt.Errorf("exp_base must be at least 1, got %v", c.ExpBase)
	}
	if c.InitialDelay < 0 || c.MaxDelay < 0 || c.Timeout < 0 {
		return fmt.Errorf("durations must be non-negative")
	}
	for _, code := range c.HTTPStatusCodes {
		if code < 100 || code > 599 {
			return fmt.Errorf("invalid HTTP status code %d", code)
		}
	}
	return nil
}

// Policy converts c into an httpclient policy.
func (c *RetryConfig) Policy() httpclient.Policy {
	return httpclient.Policy{
		Attempts:     c.Attempts,
		InitialDelay: c.InitialDelay,
		ExpBase:      c.ExpBase,
		MaxDelay:     c.MaxDelay,
		StatusCodes:  append([]int(nil), c.HTTPStatusCodes...),
	}
}

// HTTPClient returns a retrying HTTP client for model providers.
func (c *RetryConfig) HTTPClient() *http.Client {
	return httpclient.New(c.Timeout, httpclient.WithPolicy(c.Policy()))
}
