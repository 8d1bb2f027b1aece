package constants

// Stage is a state of the receipt pipeline.
type Stage string

// Stable values (used in logs, metrics and results).
const (
	StageExtracting  Stage = "extracting"
	StageNormalizing Stage = "normalizing"
	StageMatching    Stage = "matching"
	StagePersisting  Stage = "persisting"
	StageAggregating Stage = "aggregating"
	StageDone        Stage = "done"
	StageFailed      Stage = "failed" // terminal; reachable from extracting/normalizing only
)

// SourcePrefix prefixes the provenance tag stored on every ledger row ("receipt_gemini").
const SourcePrefix = "receipt_"
