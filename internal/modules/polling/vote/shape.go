package vote

import (
	"bytes"
	"encoding/json"
	"unicode/utf8"

	"github.com/samber/lo"
	"github.com/votehub/core/internal/models"
	"github.com/votehub/core/internal/pkg/apperr"
)

func invalid(field, reason string) error {
	err := apperr.Validation(apperr.InvalidResponse, map[string]string{field: reason})
	err.Message = "invalid response"
	return err
}

func decodeObject(raw json.RawMessage) (map[string]json.RawMessage, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		return nil, invalid("response", "must be an object")
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, invalid("response", "must be an object")
	}
	return obj, nil
}

// checkConfigResponse validates an admin poll response against its config.
// Fields are only checked when present.
func checkConfigResponse(cfg *models.PollConfigModel, raw json.RawMessage) error {
	obj, err := decodeObject(raw)
	if err != nil {
		return err
	}
	rules := cfg.Rules.Data().ContentRules

	if v, ok := obj["selections"]; ok {
		var selections []json.RawMessage
		if err := json.Unmarshal(v, &selections); err != nil {
			return invalid("selections", "must be a list")
		}
		if rules.MinSelections != nil && len(selections) < *rules.MinSelections {
			return invalid("selections", "too few selections")
		}
		if rules.MaxSelections != nil && len(selections) > *rules.MaxSelections {
			return invalid("selections", "too many selections")
		}
		if cfg.UITemplate == models.TemplateSingleChoice && len(selections) > 1 {
			return invalid("selections", "single choice takes one selection")
		}
	}

	switch cfg.UITemplate {
	case models.TemplateYesNo:
		if v, ok := obj["choice"]; ok {
			var choice string
			if err := json.Unmarshal(v, &choice); err != nil || !models.YesNo(choice).Valid() {
				return invalid("choice", "must be YES or NO")
			}
		}
	case models.TemplateRating:
		if v, ok := obj["value"]; ok {
			var value float64
			if err := json.Unmarshal(v, &value); err != nil {
				return invalid("value", "must be a number")
			}
			if rules.RatingMin != nil && value < *rules.RatingMin {
				return invalid("value", "below minimum rating")
			}
			if rules.RatingMax != nil && value > *rules.RatingMax {
				return invalid("value", "above maximum rating")
			}
		}
	case models.TemplateOpenText:
		if v, ok := obj["text"]; ok {
			var text string
			if err := json.Unmarshal(v, &text); err != nil {
				return invalid("text", "must be a string")
			}
			if rules.MaxTextLength != nil && utf8.RuneCountInString(text) > *rules.MaxTextLength {
				return invalid("text", "too long")
			}
		}
	case models.TemplateRanking:
		if v, ok := obj["ranking"]; ok {
			var ranking []json.RawMessage
			if err := json.Unmarshal(v, &ranking); err != nil {
				return invalid("ranking", "must be a list")
			}
			keys := lo.Map(ranking, func(r json.RawMessage, _ int) string { return string(bytes.TrimSpace(r)) })
			if len(lo.Uniq(keys)) != len(keys) {
				return invalid("ranking", "entries must be distinct")
			}
		}
	}
	return nil
}

// checkOptionResponse validates a user poll response: selections must be
// distinct option ids of the poll.
func checkOptionResponse(p *models.UserPollModel, raw json.RawMessage) error {
	obj, err := decodeObject(raw)
	if err != nil {
		return err
	}
	v, ok := obj["selections"]
	if !ok {
		return invalid("selections", "required")
	}
	var selections []uint64
	if err := json.Unmarshal(v, &selections); err != nil {
		return invalid("selections", "must be a list of option ids")
	}
	if len(selections) == 0 {
		return invalid("selections", "required")
	}
	if len(lo.Uniq(selections)) != len(selections) {
		return invalid("selections", "options must be distinct")
	}
	if p.Type != models.UserPollMultiChoice && len(selections) != 1 {
		return invalid("selections", "exactly one option is required")
	}
	known := lo.SliceToMap(p.Options, func(o models.UserPollOption) (uint64, struct{}) { return o.ID, struct{}{} })
	for _, id := range selections {
		if _, ok := known[id]; !ok {
			return invalid("selections", "unknown option")
		}
	}
	return nil
}
