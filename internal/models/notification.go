package models

// DispatchResult aggregates one notification fan-out
type DispatchResult struct {
	Sent   int      `json:"sent"`
	Failed int      `json:"failed"`
	Errors []string `json:"errors"`
}

// Add folds another result into r
func (r *DispatchResult) Add(other DispatchResult) {
	r.Sent += other.Sent
	r.Failed += other.Failed
	r.Errors = append(r.Errors, other.Errors...)
}

// BulkNotifyItem is the outcome for one post of an operator bulk notify
type BulkNotifyItem struct {
	PostID  string         `json:"post_id"`
	Title   string         `json:"title,omitempty"`
	Skipped bool           `json:"skipped"`
	Reason  string         `json:"reason,omitempty"`
	Result  DispatchResult `json:"result"`
}

// BulkNotifyReport summarizes an operator bulk notify
type BulkNotifyReport struct {
	Items   []BulkNotifyItem `json:"items"`
	Skipped int              `json:"skipped"`
	Sent    int              `json:"sent"`
	Failed  int              `json:"failed"`
}

// Append records one item and updates the totals
func (r *BulkNotifyReport) Append(item BulkNotifyItem) {
	r.Items = append(r.Items, item)
	if item.Skipped {
		r.Skipped++
		return
	}
	r.Sent += item.Result.Sent
	r.Failed += item.Result.Failed
}
