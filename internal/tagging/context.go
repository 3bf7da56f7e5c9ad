package tagging

import (
	"net/url"
	"strconv"
)

// Parameter names used by the job context codec. The carrier is
// transport-neutral: request query parameters, form fields, or CLI flags
// all round-trip the same flat set of named values. Exported so embeddings
// building a carrier by hand use the same keys the codec reads.
const (
	ParamJobID          = "job_id"
	ParamTotalFiltered  = "total_filtered"
	ParamTotalProcessed = "total_processed"
	ParamTag            = "tag"
	ParamAction         = "action"
)

// EncodeJobContext externalizes a job handle and its context as named
// values. Each subsequent status-check request echoes these back, because
// no session is retained server-side between request cycles.
func EncodeJobContext(handle JobHandle, jc JobContext) url.Values {
	v := url.Values{}
	v.Set(ParamJobID, handle.ID)
	v.Set(ParamTotalFiltered, strconv.Itoa(jc.TotalFiltered))
	v.Set(ParamTotalProcessed, strconv.Itoa(jc.TotalProcessed))
	v.Set(ParamTag, jc.Tag)
	v.Set(ParamAction, string(jc.Action))

	return v
}

// DecodeJobContext reconstructs an in-flight job's handle and context from
// carried values. All of the job ID and the three numeric/tag values must
// be present and parseable; anything missing or corrupt decodes as "no
// active job" (ok == false) rather than fabricating totals. Losing context
// mid-flight therefore fails closed: the job stops being tracked and no
// summary is surfaced.
func DecodeJobContext(v url.Values) (JobHandle, JobContext, bool) {
	id := v.Get(ParamJobID)
	if id == "" {
		return JobHandle{}, JobContext{}, false
	}

	tag := v.Get(ParamTag)
	if tag == "" {
		return JobHandle{}, JobContext{}, false
	}

	totalFiltered, err := strconv.Atoi(v.Get(ParamTotalFiltered))
	if err != nil || totalFiltered < 0 {
		return JobHandle{}, JobContext{}, false
	}

	totalProcessed, err := strconv.Atoi(v.Get(ParamTotalProcessed))
	if err != nil || totalProcessed < 0 {
		return JobHandle{}, JobContext{}, false
	}

	action := Action(v.Get(ParamAction))
	if action != ActionApply && action != ActionRemove {
		return JobHandle{}, JobContext{}, false
	}

	jc := JobContext{
		TotalFiltered:  totalFiltered,
		TotalProcessed: totalProcessed,
		Tag:            tag,
		Action:         action,
	}

	return JobHandle{ID: id}, jc, true
}

// Parameter names for filter criteria on submission requests.
const (
	paramKeyword       = "keyword"
	paramProductType   = "product_type"
	paramCollectionRef = "collection"
)

// EncodeCriteria externalizes filter criteria on the same carrier used by
// the job context, so a submission request is reconstructible from its
// own parameters alone.
func EncodeCriteria(c FilterCriteria) url.Values {
	v := url.Values{}
	if c.Keyword != "" {
		v.Set(paramKeyword, c.Keyword)
	}

	if c.ProductType != "" {
		v.Set(paramProductType, c.ProductType)
	}

	if c.CollectionRef != "" {
		v.Set(paramCollectionRef, c.CollectionRef)
	}

	return v
}

// DecodeCriteria reads filter criteria from carried values. A carrier with
// no criteria values decodes to blank criteria, which the query builder
// treats as "no query".
func DecodeCriteria(v url.Values) FilterCriteria {
	return FilterCriteria{
		Keyword:       v.Get(paramKeyword),
		ProductType:   v.Get(paramProductType),
		CollectionRef: v.Get(paramCollectionRef),
	}
}
