// Package tagging implements the bulk tag mutation pipeline: filter
// criteria are resolved into a search query, the matching product set is
// collected exhaustively, an idempotent mutation plan is computed, and the
// plan is submitted as an asynchronous platform bulk job whose results are
// later reconciled into a numerically consistent summary.
//
// The pipeline holds no server-side session state. Everything needed to
// resume tracking an in-flight job round-trips through the caller via the
// job context codec.
package tagging

// Action selects the mutation shape: adding or removing one tag.
type Action string

const (
	ActionApply  Action = "apply"
	ActionRemove Action = "remove"
)

// FilterCriteria selects the product subset to mutate. All fields are
// optional; blank-after-trim fields contribute nothing to the query.
type FilterCriteria struct {
	Keyword       string // free-text search across title and body
	ProductType   string // exact product type match
	CollectionRef string // collection membership
}

// Blank reports whether no field would produce a query clause.
func (c FilterCriteria) Blank() bool {
	_, ok := BuildQuery(c)
	return !ok
}

// MutationRecord is one line of a submitted batch: the full desired tag
// set for one product. Order is preserved from the product's current tags.
type MutationRecord struct {
	ProductID string   `json:"id"`
	Tags      []string `json:"tags"`
}

// PreRunSummary holds the counts known at submission time. Updated is an
// estimate equal to the number of records submitted; Failed is always zero
// pre-run because failures are unknown until the job completes.
// Invariant: Total == Updated + Skipped.
type PreRunSummary struct {
	Updated int    `json:"updated"`
	Skipped int    `json:"skipped"` // already had tag (apply) / did not have tag (remove)
	Failed  int    `json:"failed"`
	Total   int    `json:"total"`
	Tag     string `json:"tag"`
	Action  Action `json:"action"`
}

// FinalSummary holds the authoritative counts after reconciliation.
// Invariant: Total == Updated + Failed + Skipped, even for degraded
// summaries built from a failed result fetch.
type FinalSummary struct {
	Updated int    `json:"updated"`
	Failed  int    `json:"failed"`
	Skipped int    `json:"skipped"`
	Total   int    `json:"total"`
	Tag     string `json:"tag"`
	Action  Action `json:"action"`

	// Degraded marks a fallback summary produced when the result stream
	// could not be fetched. Err carries the cause. A degraded summary must
	// never be read as a genuine zero-failure outcome.
	Degraded bool  `json:"degraded,omitempty"`
	Err      error `json:"-"`
}

// JobContext is the minimal state needed to compute a FinalSummary after
// the stateless boundary: the filtered total, the submitted count, and the
// tag. It is produced at submission, externalized by the codec, and
// discarded once a terminal summary is obtained.
type JobContext struct {
	TotalFiltered  int
	TotalProcessed int
	Tag            string
	Action         Action
}

// JobHandle identifies a started platform bulk job.
type JobHandle struct {
	ID string
}
