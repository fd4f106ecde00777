// Package votingengine implements the delegated governance engine inside the
// governance context.
//
// The module owns voter eligibility and roles, round lifecycle, candidate and
// proposal catalogs, per-round vote delegation, weighted ballot casting with
// immutable vote records, deterministic finalization, and an append-only audit
// log relayed to the event bus through an outbox. Business rules live in the
// application/domain layers; infrastructure concerns stay behind ports and
// adapters.
package votingengine
