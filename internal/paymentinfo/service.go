// Package paymentinfo reads the key-value Settings tab: the default due-date
// window and the enum values payment forms offer. It is read-only; operators
// edit the tab directly.
package paymentinfo

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/payboard/payboard-backend/pkg/sheets"
)

const (
	keyDueHours   = "dueHours"
	keySources    = "sources"
	keyMethods    = "methods"
	keyCurrencies = "currencies"

	// DefaultDueHours applies when the tab has no usable dueHours entry.
	DefaultDueHours = 48
)

// FormEnums lists the values payment forms may choose from. Empty slices mean
// the tab does not constrain that field.
type FormEnums struct {
	Sources    []string `json:"sources"`
	Methods    []string `json:"methods"`
	Currencies []string `json:"currencies"`
}

// Service is the read-only settings surface.
type Service interface {
	DueHours(ctx context.Context) (int, error)
	Enums(ctx context.Context) (*FormEnums, error)
}

type service struct {
	store sheets.RowStore
}

// NewService wires the settings reader to the row store.
func NewService(store sheets.RowStore) (Service, error) {
	if store == nil {
		return nil, fmt.Errorf("row store required")
	}
	return &service{store: store}, nil
}

func (s *service) DueHours(ctx context.Context) (int, error) {
	settings, err := s.load(ctx)
	if err != nil {
		return 0, err
	}
	raw, ok := settings[keyDueHours]
	if !ok {
		return DefaultDueHours, nil
	}
	hours, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || hours <= 0 {
		return DefaultDueHours, nil
	}
	return hours, nil
}

func (s *service) Enums(ctx context.Context) (*FormEnums, error) {
	settings, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	return &FormEnums{
		Sources:    splitList(settings[keySources]),
		Methods:    splitList(settings[keyMethods]),
		Currencies: splitList(settings[keyCurrencies]),
	}, nil
}

func (s *service) load(ctx context.Context) (map[string]string, error) {
	rows, err := s.store.ListRows(ctx, sheets.TableSettings)
	if err != nil {
		return nil, err
	}

	layout, err := sheets.LayoutFor(sheets.TableSettings)
	if err != nil {
		return nil, err
	}
	keyOff := layout.MustOffset(sheets.SettingFieldKey)
	valueOff := layout.MustOffset(sheets.SettingFieldValue)

	settings := make(map[string]string, len(rows))
	for _, row := range rows {
		key := strings.TrimSpace(row.Cell(keyOff))
		if key == "" {
			continue
		}
		settings[key] = row.Cell(valueOff)
	}
	return settings, nil
}

func splitList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if v := strings.TrimSpace(p); v != "" {
			out = append(out, v)
		}
	}
	return out
}
