// Package access contains the core domain types of the decision pipeline.
//
// It defines Identity (with the Unknown sentinel), the per-frame Sample, the
// PolicyResult of an access evaluation, plus the two stateful helpers the
// recognition loop owns: StabilityFilter, which debounces noisy per-frame
// predictions into stable events, and DecisionCache, which keeps a sustained
// streak from re-querying the policy store on every frame.
package access
