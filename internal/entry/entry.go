// Package entry defines the canonical bibliographic record.
//
// Every input shape (Paperpile rows, native CSV, JSON, YAML) is converted into
// an Entry at the I/O boundary so that enrichment, indexing, merging and
// validation only ever see one type.
package entry

// Type is the kind of publication an entry describes.
type Type string

const (
	TypeAudiovisual           Type = "Audiovisual"
	TypeBook                  Type = "Book"
	TypeBookChapter           Type = "BookChapter"
	TypeComputationalNotebook Type = "ComputationalNotebook"
	TypeCollection            Type = "Collection"
	TypeConferencePaper       Type = "ConferencePaper"
	TypeConferenceProceeding  Type = "ConferenceProceeding"
	TypeDataset               Type = "Dataset"
	TypeDissertation          Type = "Dissertation"
	TypeJournal               Type = "Journal"
	TypeJournalArticle        Type = "JournalArticle"
	TypeModel                 Type = "Model"
	TypePeerReview            Type = "PeerReview"
	TypeNews                  Type = "News"
	TypePreprint              Type = "Preprint"
	TypeReport                Type = "Report"
	TypeSoftware              Type = "Software"
	TypeStandard              Type = "Standard"
	TypeOther                 Type = "Other"
)

// Types lists every valid publication type.
var Types = []Type{
	TypeAudiovisual, TypeBook, TypeBookChapter, TypeComputationalNotebook,
	TypeCollection, TypeConferencePaper, TypeConferenceProceeding, TypeDataset,
	TypeDissertation, TypeJournal, TypeJournalArticle, TypeModel,
	TypePeerReview, TypeNews, TypePreprint, TypeReport, TypeSoftware,
	TypeStandard, TypeOther,
}

// Valid reports whether t is one of the declared publication types.
func (t Type) Valid() bool {
	for _, v := range Types {
		if t == v {
			return true
		}
	}
	return false
}

// Role is the seniority role derived from an author's list position.
type Role string

const (
	RoleSole        Role = "sole"
	RoleLead        Role = "lead"
	RoleCoLead      Role = "co_lead"
	RoleSenior      Role = "senior"
	RoleCoSenior    Role = "co_senior"
	RoleOtherMajor  Role = "other_major"
	RoleContributor Role = "contributor"
)

// Roles lists every valid role.
var Roles = []Role{
	RoleSole, RoleLead, RoleCoLead, RoleSenior, RoleCoSenior, RoleOtherMajor, RoleContributor,
}

// Valid reports whether r is one of the declared roles.
func (r Role) Valid() bool {
	for _, v := range Roles {
		if r == v {
			return true
		}
	}
	return false
}

// Entry is a single bibliographic record.
//
// An empty string, nil slice or nil pointer means the field is unset.
// Pointers are used only where zero is a meaningful value (rank 0 is the
// first author).
type Entry struct {
	Type    Type     `json:"type,omitempty" yaml:"type,omitempty"`
	Title   string   `json:"title,omitempty" yaml:"title,omitempty"`
	Authors []string `json:"authors,omitempty" yaml:"authors,omitempty"`

	// AuthorsVerbatim keeps the raw delimited string the authors were split from.
	AuthorsVerbatim string `json:"authors_verbatim,omitempty" yaml:"authors_verbatim,omitempty"`

	Journal               string `json:"journal,omitempty" yaml:"journal,omitempty"`
	Repository            string `json:"repository,omitempty" yaml:"repository,omitempty"`
	ConferenceProceedings string `json:"conference_proceedings,omitempty" yaml:"conference_proceedings,omitempty"`

	URLs         []string `json:"urls,omitempty" yaml:"urls,omitempty"`
	URLsVerbatim string   `json:"urls_verbatim,omitempty" yaml:"urls_verbatim,omitempty"`
	CEURWSURL    string   `json:"ceur_ws_url,omitempty" yaml:"ceur_ws_url,omitempty"`

	// Identifiers
	DOI        string `json:"doi,omitempty" yaml:"doi,omitempty"`
	PMID       string `json:"pmid,omitempty" yaml:"pmid,omitempty"`
	PMCID      string `json:"pmcid,omitempty" yaml:"pmcid,omitempty"`
	ArXivID    string `json:"arxiv_id,omitempty" yaml:"arxiv_id,omitempty"`
	BioRxivID  string `json:"biorxiv_id,omitempty" yaml:"biorxiv_id,omitempty"`
	ChemRxivID string `json:"chemrxiv_id,omitempty" yaml:"chemrxiv_id,omitempty"`

	// Locators
	Year    string `json:"year,omitempty" yaml:"year,omitempty"`
	Volume  string `json:"volume,omitempty" yaml:"volume,omitempty"`
	Issue   string `json:"issue,omitempty" yaml:"issue,omitempty"`
	Pages   string `json:"pages,omitempty" yaml:"pages,omitempty"`
	LocalID string `json:"local_id,omitempty" yaml:"local_id,omitempty"`

	// Derived by author position annotation; set together or not at all.
	NumAuthors   *int     `json:"num_authors,omitempty" yaml:"num_authors,omitempty"`
	Position     *int     `json:"position,omitempty" yaml:"position,omitempty"`
	Rank         *int     `json:"rank,omitempty" yaml:"rank,omitempty"`
	Significance *float64 `json:"significance,omitempty" yaml:"significance,omitempty"`
	Role         Role     `json:"role,omitempty" yaml:"role,omitempty"`
}

// Clone returns a deep copy of e.
func (e Entry) Clone() Entry {
	c := e
	c.Authors = cloneStrings(e.Authors)
	c.URLs = cloneStrings(e.URLs)
	c.NumAuthors = cloneInt(e.NumAuthors)
	c.Position = cloneInt(e.Position)
	c.Rank = cloneInt(e.Rank)
	if e.Significance != nil {
		v := *e.Significance
		c.Significance = &v
	}
	return c
}

// Label returns a short human-readable identification of the entry,
// used in log lines and diagnostics.
func (e Entry) Label() string {
	switch {
	case e.Title != "":
		return e.Title
	case e.DOI != "":
		return "doi:" + e.DOI
	case e.PMID != "":
		return "pmid:" + e.PMID
	case e.ArXivID != "":
		return "arxiv:" + e.ArXivID
	}
	return "(untitled)"
}

// IntPtr returns a pointer to v.
func IntPtr(v int) *int { return &v }

// FloatPtr returns a pointer to v.
func FloatPtr(v float64) *float64 { return &v }

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s))
	copy(out, s)
	return out
}

func cloneInt(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
