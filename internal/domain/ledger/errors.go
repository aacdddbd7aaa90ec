package ledger

import "fmt"

// NormalizationErrorKind classifies why a raw record could not become a
// canonical transaction.
type NormalizationErrorKind string

const (
	AmbiguousDate        NormalizationErrorKind = "ambiguous_date"
	AmbiguousAmount      NormalizationErrorKind = "ambiguous_amount"
	MissingAmount        NormalizationErrorKind = "missing_amount"
	EmptyDescription     NormalizationErrorKind = "empty_description"
	BalanceDiscontinuity NormalizationErrorKind = "balance_discontinuity"
)

// NormalizationError is fatal to an ingestion attempt: no partial batch is
// ever emitted. Index is the zero-based offending record in document order,
// carried so the caller can point the user at the exact row.
type NormalizationError struct {
	Kind   NormalizationErrorKind
	Index  int
	Detail string
}

func (e *NormalizationError) Error() string {
	return fmt.Sprintf("normalization error (%s) at record %d: %s", e.Kind, e.Index, e.Detail)
}

func newNormalizationError(kind NormalizationErrorKind, index int, format string, args ...any) *NormalizationError {
	return &NormalizationError{Kind: kind, Index: index, Detail: fmt.Sprintf(format, args...)}
}

// StorageError reports a failed atomic write during reconciliation. The
// write is all-or-nothing, so the ledger is unchanged and the caller may
// retry the whole ingestion.
type StorageError struct {
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("ledger storage failure: %v", e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }
