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

package httpclient

import (
	"net/http"
	"strconv"
	"time"
)

// RateLimitInfo holds retry hints sent by a server.
type RateLimitInfo struct {
	RetryAfter time.Duration
}

// ParseRateLimitHeaders reads Retry-After (seconds or HTTP date) and the
// millisecond variant some model APIs send.
func ParseRateLimitHeaders(headers http.Header) RateLimitInfo {
	info := RateLimitInfo{}

	if ms := headers.Get("retry-after-ms"); ms != "" {
		if v, err := strconv.ParseFloat(ms, 64); err == nil && v > 0 {
			info.RetryAfter = time.Duration(v * float64(time.Millisecond))
			return info
		}
	}

	retryAfter := headers.Get("Retry-After")
	if retryAfter == "" {
		return info
	}
	if seconds, err := strconv.Atoi(retryAfter); err == nil {
		if seconds > 0 {
			info.RetryAfter = time.Duration(seconds) * time.Second
		}
		return info
	}
	if when, err := http.ParseTime(retryAfter); err == nil {
		if d := time.Until(when); d > 0 {
			info.RetryAfter = d
		}
	}
	return info
}
