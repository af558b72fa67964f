package config

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Recognised [sort] option names.
const (
	OptPropertyName          = "property_name"
	OptTrueContainer         = "true_container"
	OptFalseContainer        = "false_container"
	OptEnableCompletedDate   = "enable_completed_date"
	OptCompletedDateProperty = "completed_date_property"
	OptRootContainer         = "root_container"
	OptTemplatePath          = "template_path"
	OptEnableBacklog         = "enable_backlog"
	OptBacklogContainer      = "backlog_container"
	OptIceboxContainer       = "icebox_container"
)

// ErrInvalidOption is returned for unknown option names and unparsable values.
var ErrInvalidOption = errors.New("invalid option")

type option struct {
	get func(*Sort) string
	set func(*Sort, string) error
}

func stringOption(field func(*Sort) *string) option {
	return option{
		get: func(s *Sort) string { return *field(s) },
		set: func(s *Sort, v string) error {
			*field(s) = v
			return nil
		},
	}
}

func boolOption(field func(*Sort) *bool) option {
	return option{
		get: func(s *Sort) string { return strconv.FormatBool(*field(s)) },
		set: func(s *Sort, v string) error {
			b, err := strconv.ParseBool(strings.TrimSpace(v))
			if err != nil {
				return fmt.Errorf("expected true or false, got %q", v)
			}
			*field(s) = b
			return nil
		},
	}
}

var options = map[string]option{
	OptPropertyName:          stringOption(func(s *Sort) *string { return &s.PropertyName }),
	OptTrueContainer:         stringOption(func(s *Sort) *string { return &s.TrueContainer }),
	OptFalseContainer:        stringOption(func(s *Sort) *string { return &s.FalseContainer }),
	OptEnableCompletedDate:   boolOption(func(s *Sort) *bool { return &s.EnableCompletedDate }),
	OptCompletedDateProperty: stringOption(func(s *Sort) *string { return &s.CompletedDateProperty }),
	OptRootContainer:         stringOption(func(s *Sort) *string { return &s.RootContainer }),
	OptTemplatePath:          stringOption(func(s *Sort) *string { return &s.TemplatePath }),
	OptEnableBacklog:         boolOption(func(s *Sort) *bool { return &s.EnableBacklog }),
	OptBacklogContainer:      stringOption(func(s *Sort) *string { return &s.BacklogContainer }),
	OptIceboxContainer:       stringOption(func(s *Sort) *string { return &s.IceboxContainer }),
}

// OptionKeys returns the recognised option names in sorted order.
func OptionKeys() []string {
	keys := make([]string, 0, len(options))
	for k := range options {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// SetOption assigns a recognised option from its textual form. The value is
// normalised the same way Load normalises the file.
func (s *Sort) SetOption(key, value string) error {
	if s == nil {
		return fmt.Errorf("sort config is nil")
	}
	key = strings.ToLower(strings.TrimSpace(key))
	opt, ok := options[key]
	if !ok {
		return fmt.Errorf("%w: unknown option %q (known: %s)", ErrInvalidOption, key, strings.Join(OptionKeys(), ", "))
	}
	if err := opt.set(s, value); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidOption, key, err)
	}
	s.normalize()
	return nil
}

// GetOption returns the textual form of a recognised option.
func (s Sort) GetOption(key string) (string, error) {
	key = strings.ToLower(strings.TrimSpace(key))
	opt, ok := options[key]
	if !ok {
		return "", fmt.Errorf("%w: unknown option %q", ErrInvalidOption, key)
	}
	return opt.get(&s), nil
}

// Options returns every recognised option with its current value.
func (s Sort) Options() map[string]string {
	out := make(map[string]string, len(options))
	for k, opt := range options {
		out[k] = opt.get(&s)
	}
	return out
}
