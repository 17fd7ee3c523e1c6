// Package bed provides Bayesian experimental design: it recommends the
// next experiments to run given past observations, using probabilistic
// surrogate models and acquisition functions over mixed
// discrete/continuous search spaces.
//
// # Features
//
// The module includes the following key features:
//
//   - Bayesian Optimization: Gaussian Process regression drives the
//     selection of promising candidates
//   - Multiple Acquisition Functions: analytic (PM, EI, LogEI, PI, UCB),
//     Monte Carlo batch variants (qSR, qEI, qLogEI, qPI, qUCB, qNEI,
//     qLogNEI), and active learning (qNIPV)
//   - Mixed Search Spaces: discrete candidate tables, box-bounded
//     continuous parameters, and hybrids of both
//   - Candidate Bookkeeping: per-row measured/recommended/blocked flags
//     with explicit, testable mutation
//   - Pluggable Surrogates: registry-backed models with capability
//     descriptors; a mean-prediction baseline ships alongside the GP
//   - Declarative Construction: recommenders can be built from a YAML
//     configuration through the registry
//
// # Recommendation cycle
//
// A cycle is synchronous and runs to completion: fit a fresh surrogate to
// the observations, build an acquisition function around the fitted model
// and the best observed value, filter the discrete candidates by the
// exclusion flags, optimize the acquisition over the remaining space, and
// mark the chosen rows as recommended. Callers must serialize cycles
// against a shared search space; the metadata mutation is an in-place
// side effect.
//
// # Usage example
//
//	space, _ := searchspace.New(discretePart, nil)
//
//	rec := recommender.NewSequentialGreedy(
//	    recommender.WithAcquisitionFunction("qEI"),
//	)
//
//	req := recommender.DefaultRequest()
//	req.BatchQuantity = 5
//
//	batch, err := rec.Recommend(space, trainX, trainY, req)
//
// Or declaratively:
//
//	cfg, _ := bed.LoadConfig("campaign.yaml")
//	rec, err := cfg.Build()
package bed
