package auth

// ContentTable describes one table holding rows attributed to an actor.
// Only tables touched by the XML dump import process (plus recentchanges)
// are reattributed. Tables with an empty ActorColumn have no actor-capable
// column on this schema; reattribution treats them as deliberate no-ops.
type ContentTable struct {
	Name        string
	IDColumn    string
	ActorColumn string
	// StringID marks tables keyed by a text column (image/oldimage use the
	// file name as their primary key).
	StringID bool
}

// LogSearchTable is handled outside ContentTables: log_search is keyed by a
// field-name discriminator rather than an actor column, so its updates need
// an extra equality condition on ls_field.
const LogSearchTable = "log_search"

var contentTables = []ContentTable{
	{Name: "archive", IDColumn: "ar_id", ActorColumn: "ar_actor"},
	{Name: "filearchive", IDColumn: "fa_id", ActorColumn: "fa_actor"},
	{Name: "image", IDColumn: "img_name", ActorColumn: "img_actor", StringID: true},
	{Name: "logging", IDColumn: "log_id", ActorColumn: "log_actor"},
	{Name: "oldimage", IDColumn: "oi_name", ActorColumn: "oi_actor", StringID: true},
	{Name: "recentchanges", IDColumn: "rc_id", ActorColumn: "rc_actor"},
	{Name: "revision", IDColumn: "rev_id", ActorColumn: ""},
	{Name: "revision_actor_temp", IDColumn: "revactor_rev", ActorColumn: "revactor_actor"},
}

// ContentTables returns the fixed set of reattributable tables.
func ContentTables() []ContentTable {
	out := make([]ContentTable, len(contentTables))
	copy(out, contentTables)
	return out
}

// ContentTableByName looks up a table by name.
func ContentTableByName(name string) (ContentTable, bool) {
	for _, t := range contentTables {
		if t.Name == name {
			return t, true
		}
	}
	return ContentTable{}, false
}
