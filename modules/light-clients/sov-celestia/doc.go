/*
Package sovcelestia implements the ClientState, ConsensusState, Header and
Misbehaviour of a light client that tracks a Sovereign SDK rollup publishing
its blocks on a Celestia data availability layer.

A client update carries a batch of Celestia headers, verified against the
validator set trusted at a stored height, together with an aggregated zk proof
of the rollup state transition between two slots. The proof is accepted only
when it was produced by the program the client is bound to (the code
commitment), when it starts from the state root already stored at its initial
slot and when its validity condition matches the verified Celestia headers.
State proofs are checked against the stored roots with ics23 Jellyfish Merkle
Tree proofs.
*/
package sovcelestia
