package normalize

// FieldType decides how a source cell is parsed. The declared type wins over
// whatever formatting the source used.
type FieldType string

const (
	// FieldText keeps the trimmed source text as-is.
	FieldText FieldType = "text"
	// FieldPercent keeps the textual percentage form ("66.7%").
	FieldPercent FieldType = "percent"
	// FieldNumber parses a signed decimal, stripping a leading "+".
	FieldNumber FieldType = "number"
)

// FieldMapping maps the source's header labels, in any of their observed
// spellings, onto one canonical field.
type FieldMapping struct {
	Labels []string  `yaml:"labels"`
	Field  string    `yaml:"field"`
	Type   FieldType `yaml:"type"`
}

// Mapping is the versioned label lookup table for one league's source table.
// Source format changes are absorbed here, not in normalization logic.
type Mapping struct {
	Version int            `yaml:"version"`
	Fields  []FieldMapping `yaml:"fields"`
}

// Canonical field names.
const (
	FieldTeam         = "team"
	FieldATSRecord    = "ats_record"
	FieldCoverPct     = "cover_pct"
	FieldMOV          = "mov"
	FieldATSPlusMinus = "ats_plus_minus"
)

// DefaultMapping covers the TeamRankings ATS trends table as published for
// all four leagues.
func DefaultMapping() Mapping {
	return Mapping{
		Version: 1,
		Fields: []FieldMapping{
			{Labels: []string{"Team", "TEAM", "team"}, Field: FieldTeam, Type: FieldText},
			{Labels: []string{"ATS Record", "ATS Rec"}, Field: FieldATSRecord, Type: FieldText},
			{Labels: []string{"Cover %", "Cover Pct"}, Field: FieldCoverPct, Type: FieldPercent},
			{Labels: []string{"MOV"}, Field: FieldMOV, Type: FieldNumber},
			{Labels: []string{"ATS +/-", "ATS +/ -"}, Field: FieldATSPlusMinus, Type: FieldNumber},
		},
	}
}
