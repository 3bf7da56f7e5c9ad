package tagging

import "strings"

// BuildQuery renders filter criteria as a platform search query.
// Each non-blank field becomes one clause; clauses are joined with AND.
// Returns ("", false) when no field produces a clause — the caller must
// treat that as a no-op request, not an error.
//
// Pure function: escaping edge cases (embedded quotes, unicode, blank
// after trim) are exhaustively unit-testable.
func BuildQuery(c FilterCriteria) (string, bool) {
	var clauses []string

	if kw := strings.TrimSpace(c.Keyword); kw != "" {
		// Double quotes delimit the phrase, so embedded ones are stripped.
		kw = strings.ReplaceAll(kw, `"`, "")
		if kw != "" {
			clauses = append(clauses, `title:*`+quoteFree(kw)+`*`)
		}
	}

	if pt := strings.TrimSpace(c.ProductType); pt != "" {
		clauses = append(clauses, "product_type:'"+escapeExact(pt)+"'")
	}

	if cr := strings.TrimSpace(c.CollectionRef); cr != "" {
		clauses = append(clauses, "collection:'"+escapeExact(cr)+"'")
	}

	if len(clauses) == 0 {
		return "", false
	}

	return strings.Join(clauses, " AND "), true
}

// quoteFree strips characters that would break out of a free-text clause.
func quoteFree(s string) string {
	return strings.NewReplacer(`"`, "", "'", "").Replace(s)
}

// escapeExact escapes single quotes inside an exact-match clause value.
func escapeExact(s string) string {
	return strings.ReplaceAll(s, "'", `\'`)
}
