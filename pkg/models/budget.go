package models

// BudgetPeriod is the window a budget resets over.
type BudgetPeriod string

const (
	BudgetDaily   BudgetPeriod = "daily"
	BudgetMonthly BudgetPeriod = "monthly"
)

// BudgetPolicy caps the tokens a deployment may spend per period. A
// Deployment of "*" matches every deployment; an empty EntityKind matches
// every kind.
type BudgetPolicy struct {
	Deployment string       `yaml:"deployment" json:"deployment"`
	EntityKind EntityKind   `yaml:"entity_kind" json:"entity_kind,omitempty"`
	MaxTokens  int64        `yaml:"max_tokens" json:"max_tokens"`
	Period     BudgetPeriod `yaml:"period" json:"period"`
}

// BudgetStatus shows current usage against a budget policy.
type BudgetStatus struct {
	Policy    BudgetPolicy `json:"policy"`
	Used      int64        `json:"used"`
	Remaining int64        `json:"remaining"`
}
