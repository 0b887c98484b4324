// Package toddleops builds toddler craft projects with a team of agents.
//
// Agents are declared as archetypes (internal/crafts), materialized by the
// factory (pkg/factory) from dotted namespace paths (pkg/resolve), and run
// by the runner (pkg/runner). The CLI lives in cmd/toddleops:
//
//	toddleops new "something with paper plates" --save
//	toddleops db list
//	toddleops archetypes ToddleOpsRoot
package toddleops
