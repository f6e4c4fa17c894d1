package dto

type CreateRuleRequest struct {
	CategoryID  string `json:"category_id" validate:"required,uuid"`
	Pattern     string `json:"pattern" validate:"required"`
	PatternType string `json:"pattern_type" validate:"required,oneof=contains startsWith regex"`
	Priority    int    `json:"priority"`
}

type RuleResponse struct {
	ID          string `json:"id"`
	CategoryID  string `json:"category_id"`
	Pattern     string `json:"pattern"`
	PatternType string `json:"pattern_type"`
	Priority    int    `json:"priority"`
	Active      bool   `json:"active"`
	CreatedAt   string `json:"created_at"`
}
