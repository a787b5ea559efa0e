package entity

// OrgRecord is the whitelist entry consulted before building or running
// anything for an organization. A missing record and Allowed=false are
// reported as different errors.
type OrgRecord struct {
	OrgID   int64  `json:"org_id"`
	Name    string `json:"name"`
	Allowed bool   `json:"allowed"`
}
