package eutils

import (
	"fmt"
	"strconv"

	"github.com/segmentio/encoding/json"
)

// FlexibleID can unmarshal from either string or number JSON values.
// ELink returns link IDs as strings, but older responses used numbers.
type FlexibleID string

func (f *FlexibleID) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*f = ""
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = FlexibleID(s)
		return nil
	}

	var n int64
	if err := json.Unmarshal(data, &n); err == nil {
		*f = FlexibleID(strconv.FormatInt(n, 10))
		return nil
	}

	return fmt.Errorf("cannot unmarshal %s into FlexibleID", string(data))
}

func (f FlexibleID) String() string {
	return string(f)
}

// elinkResponse is the subset of an ELink JSON response we read.
type elinkResponse struct {
	LinkSets []struct {
		DBFrom     string `json:"dbfrom"`
		LinkSetDBs []struct {
			DBTo     string       `json:"dbto"`
			LinkName string       `json:"linkname"`
			Links    []FlexibleID `json:"links"`
		} `json:"linksetdbs"`
	} `json:"linksets"`
}

// pubmedPMCLink is the ELink name for the primary PubMed -> PMC mapping.
const pubmedPMCLink = "pubmed_pmc"

// firstPMCID extracts the PMC identifier from the first link set, preferring
// the primary pubmed_pmc link over related-article links.
func (r elinkResponse) firstPMCID() string {
	if len(r.LinkSets) == 0 || len(r.LinkSets[0].LinkSetDBs) == 0 {
		return ""
	}
	dbs := r.LinkSets[0].LinkSetDBs
	chosen := dbs[0]
	for _, db := range dbs {
		if db.LinkName == pubmedPMCLink {
			chosen = db
			break
		}
	}
	if len(chosen.Links) == 0 || chosen.Links[0] == "" {
		return ""
	}
	return "PMC" + chosen.Links[0].String()
}
