package model

// Insurance is one coverage fact extracted from a payment-sources section.
type Insurance struct {
	ID             int64   `db:"id" json:"id"`
	PatientID      int64   `db:"patient_id" json:"patient_id"`
	PayerName      *string `db:"payer_name" json:"payer_name,omitempty"`
	PayerID        *string `db:"payer_id" json:"payer_id,omitempty"`
	PlanName       *string `db:"plan_name" json:"plan_name,omitempty"`
	CoverageType   *string `db:"coverage_type" json:"coverage_type,omitempty"`
	PolicyType     *string `db:"policy_type" json:"policy_type,omitempty"`
	MemberID       *string `db:"member_id" json:"member_id,omitempty"`
	GroupNumber    *string `db:"group_number" json:"group_number,omitempty"`
	SubscriberID   *string `db:"subscriber_id" json:"subscriber_id,omitempty"`
	SubscriberName *string `db:"subscriber_name" json:"subscriber_name,omitempty"`
	Relationship   *string `db:"relationship" json:"relationship,omitempty"`
	CoverageStart  *string `db:"coverage_start" json:"coverage_start,omitempty"`
	CoverageEnd    *string `db:"coverage_end" json:"coverage_end,omitempty"`
	Status         *string `db:"status" json:"status,omitempty"`
	SourcePolicyID *string `db:"source_policy_id" json:"source_policy_id,omitempty"`
	Notes          *string `db:"notes" json:"notes,omitempty"`
	DataSourceID   *int64  `db:"data_source_id" json:"data_source_id,omitempty"`
}
