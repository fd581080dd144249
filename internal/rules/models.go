package rules

// RuleResult is the outcome of one weighted rule evaluation. Value is nil
// when the rule had no data to work with.
type RuleResult struct {
	RuleName  string   `json:"rule_name"`
	Value     *float64 `json:"value"`
	Threshold string   `json:"threshold"`
	Passed    bool     `json:"passed"`
	Reason    string   `json:"reason"`
	Weight    float64  `json:"weight"`
}

// StockJudgment is the final call of one strategy for one symbol.
type StockJudgment struct {
	Code        string       `json:"code"`
	Name        string       `json:"name"`
	Strategy    string       `json:"strategy"`
	Signal      string       `json:"signal"`
	Score       float64      `json:"score"`
	Price       *float64     `json:"price"`
	RuleResults []RuleResult `json:"rule_results"`
	AsOf        string       `json:"as_of"`
}

// TopReason returns the first rule's reason, used as the display headline.
func (j StockJudgment) TopReason() string {
	if len(j.RuleResults) == 0 {
		return ""
	}
	return j.RuleResults[0].Reason
}
