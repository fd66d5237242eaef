// Package engine runs workflow graphs. A single Engine is safe to share
// across goroutines: each RunWorkflow call owns its own run state, executes
// steps in dependency order with per-attempt timeouts and retries, and
// reports every outcome in the returned WorkflowResult
package engine
