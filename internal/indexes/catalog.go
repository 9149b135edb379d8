package indexes

import (
	"strings"

	"github.com/pkg/errors"
)

// IndexSpec is one recommended index.
type IndexSpec struct {
	Name    string
	Table   string
	Columns []string
	Unique  bool
	Reason  string
}

// Statement builds the idempotent CREATE INDEX statement for the index.
func (s IndexSpec) Statement() (string, error) {
	if len(s.Columns) == 0 {
		return "", errors.Errorf("index %q has no columns", s.Name)
	}

	name, err := quoteIdent(s.Name)
	if err != nil {
		return "", errors.WithMessage(err, "index name")
	}
	table, err := quoteIdent(s.Table)
	if err != nil {
		return "", errors.WithMessagef(err, "index %s table", s.Name)
	}

	cols := make([]string, 0, len(s.Columns))
	for _, c := range s.Columns {
		q, err := quoteIdent(c)
		if err != nil {
			return "", errors.WithMessagef(err, "index %s column", s.Name)
		}
		cols = append(cols, q)
	}

	var b strings.Builder
	b.WriteString("CREATE ")
	if s.Unique {
		b.WriteString("UNIQUE ")
	}
	b.WriteString("INDEX IF NOT EXISTS ")
	b.WriteString(name)
	b.WriteString(" ON ")
	b.WriteString(table)
	b.WriteString(" (")
	b.WriteString(strings.Join(cols, ", "))
	b.WriteString(")")
	return b.String(), nil
}

func quoteIdent(id string) (string, error) {
	if id == "" {
		return "", errors.New("empty identifier")
	}
	if strings.ContainsRune(id, 0) {
		return "", errors.Errorf("identifier %q contains NUL", id)
	}
	return `"` + strings.ReplaceAll(id, `"`, `""`) + `"`, nil
}

// catalog follows the lookups the site makes: login, admin listings, and the
// ordered public galleries.
var catalog = []IndexSpec{
	{Name: "idx_user_email", Table: "User", Columns: []string{"email"}, Unique: true,
		Reason: "login lookups by email"},
	{Name: "idx_user_username", Table: "User", Columns: []string{"username"}, Unique: true,
		Reason: "login lookups by username"},
	{Name: "idx_user_role_created", Table: "User", Columns: []string{"role", "createdAt"},
		Reason: "admin user listings by role"},

	{Name: "idx_navigation_parent_order", Table: "NavigationItem", Columns: []string{"parentId", "order"},
		Reason: "ordered menu tree"},
	{Name: "idx_navigation_href", Table: "NavigationItem", Columns: []string{"href"},
		Reason: "active link resolution"},

	{Name: "idx_game_feature_active_order", Table: "GameFeature", Columns: []string{"isActive", "order"},
		Reason: "ordered active feature list"},
	{Name: "idx_game_screenshot_active", Table: "GameScreenshot", Columns: []string{"isActive"},
		Reason: "active screenshot gallery"},

	{Name: "idx_job_class_category_order", Table: "JobClass", Columns: []string{"category", "order"},
		Reason: "job classes per category"},
	{Name: "idx_job_class_active_order", Table: "JobClass", Columns: []string{"isActive", "order"},
		Reason: "ordered active job classes"},
	{Name: "idx_job_category_active_order", Table: "JobCategory", Columns: []string{"isActive", "order"},
		Reason: "ordered active job categories"},

	{Name: "idx_team_instance_category_order", Table: "TeamInstance", Columns: []string{"category", "order"},
		Reason: "team instances per category"},
	{Name: "idx_team_instance_active_level", Table: "TeamInstance", Columns: []string{"isActive", "level"},
		Reason: "active instances by level"},

	{Name: "idx_historical_moment_active_order", Table: "HistoricalMoment", Columns: []string{"isActive", "order"},
		Reason: "ordered active history gallery"},

	{Name: "idx_news_published", Table: "NewsPost", Columns: []string{"isPublished", "publishedAt"},
		Reason: "published news feed"},
	{Name: "idx_news_created", Table: "NewsPost", Columns: []string{"createdAt"},
		Reason: "admin news listing"},

	{Name: "idx_media_filename", Table: "MediaAsset", Columns: []string{"filename"},
		Reason: "media lookup by filename"},
	{Name: "idx_media_mime_type", Table: "MediaAsset", Columns: []string{"mimeType"},
		Reason: "media library filtering"},
}

// Catalog returns a copy of the recommended indexes.
func Catalog() []IndexSpec {
	out := make([]IndexSpec, len(catalog))
	for i, s := range catalog {
		s.Columns = append([]string(nil), s.Columns...)
		out[i] = s
	}
	return out
}
