package index

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNamespaceWithPattern rejects the ambiguous combination of a namespace
// filter with like-syntax: callers wanting both must embed the namespace in
// the domain pattern.
var ErrNamespaceWithPattern = errors.New(
	"namespace filter cannot be combined with like-syntax; include the namespace in the domain pattern instead")

// Filter selects manifest rows by domain, namespace and device path.
//
// In the default prefix mode, Domain and Path are literal prefixes and
// Namespace (which requires Domain to be set, possibly to "") constrains the
// suffix of the raw domain column. With Pattern set, Domain and Path are
// passed through as SQLite LIKE expressions and Namespace is rejected.
type Filter struct {
	Domain    string
	Namespace string
	Path      string
	// Pattern interprets Domain and Path as LIKE expressions instead of
	// literal prefixes.
	Pattern bool
	// CaseSensitive controls LIKE matching for this query only. SQLite
	// matches ASCII case-insensitively by default.
	CaseSensitive bool
	// Sort orders rows by (domain, relativePath) backend-side, for display.
	Sort bool
}

// Validate rejects filter combinations before any query is issued.
func (f Filter) Validate() error {
	if f.Pattern && f.Namespace != "" {
		return ErrNamespaceWithPattern
	}
	return nil
}

const contentColumns = "fileID, domain, relativePath, flags, file"

// contentQuery builds the row-fetch statement for the filter, with all
// filter values bound as parameters. Prefix-mode values are escaped so that
// LIKE wildcards in them match literally.
func (f Filter) contentQuery() (string, []interface{}, error) {
	if err := f.Validate(); err != nil {
		return "", nil, err
	}

	var b strings.Builder
	b.WriteString("SELECT " + contentColumns + " FROM Files WHERE 1 = 1")
	var args []interface{}

	if f.Pattern {
		if f.Domain != "" {
			b.WriteString(" AND domain LIKE ?")
			args = append(args, f.Domain)
		}
		if f.Path != "" {
			b.WriteString(" AND relativePath LIKE ?")
			args = append(args, f.Path)
		}
	} else {
		switch {
		case f.Namespace != "":
			b.WriteString(` AND domain LIKE ? ESCAPE '\'`)
			args = append(args, escapeLike(f.Domain)+"%-"+escapeLike(f.Namespace)+"%")
		case f.Domain != "":
			b.WriteString(` AND domain LIKE ? ESCAPE '\'`)
			args = append(args, escapeLike(f.Domain)+"%")
		}
		if f.Path != "" {
			b.WriteString(` AND relativePath LIKE ? ESCAPE '\'`)
			args = append(args, escapeLike(f.Path)+"%")
		}
	}

	if f.Sort {
		b.WriteString(" ORDER BY domain, relativePath")
	}
	return b.String(), args, nil
}

// countQuery builds the count variant of the same filter.
func (f Filter) countQuery() (string, []interface{}, error) {
	inner := f
	inner.Sort = false
	query, args, err := inner.contentQuery()
	if err != nil {
		return "", nil, err
	}
	return "SELECT COUNT(*) FROM (" + query + ")", args, nil
}

// domainsQuery lists distinct top-level domains: the raw domain truncated at
// the first hyphen, or whole when it carries none.
const domainsQuery = `
	SELECT DISTINCT
		CASE WHEN instr(domain, '-') > 0
			THEN substr(domain, 1, instr(domain, '-') - 1)
			ELSE domain
		END AS domain
	FROM Files`

// namespacesQuery lists distinct namespaces under a domain: the raw domain
// suffix after "<domain>-".
func namespacesQuery(domain string) (string, []interface{}) {
	query := fmt.Sprintf(
		`SELECT DISTINCT substr(domain, %d) AS namespace FROM Files WHERE domain LIKE ? ESCAPE '\'`,
		len(domain)+2)
	return query, []interface{}{escapeLike(domain) + "-%"}
}

// escapeLike quotes LIKE wildcards so a filter value matches literally.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
