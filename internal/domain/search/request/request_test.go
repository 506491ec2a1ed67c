package request

import (
	"errors"
	"strings"
	"testing"

	"github.com/kailas-cloud/cardex/internal/domain"
	"github.com/kailas-cloud/cardex/internal/domain/search/order"
)

func TestNew_Defaults(t *testing.T) {
	r, err := New("bolt", 0, 0, "", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Query() != "bolt" {
		t.Errorf("Query() = %q", r.Query())
	}
	if r.Skip() != 0 {
		t.Errorf("Skip() = %d", r.Skip())
	}
	if r.Take() != DefaultTake {
		t.Errorf("Take() = %d, want %d", r.Take(), DefaultTake)
	}
	if r.Sort() != order.Name {
		t.Errorf("Sort() = %q, want name (default)", r.Sort())
	}
	if r.Order() != order.Asc {
		t.Errorf("Order() = %q, want asc (default)", r.Order())
	}
}

func TestNew_ExplicitValues(t *testing.T) {
	r, err := New("t:goblin", 30, 16, order.CMC, order.Desc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Skip() != 30 || r.Take() != 16 {
		t.Errorf("Skip()/Take() = %d/%d", r.Skip(), r.Take())
	}
	if r.Sort() != order.CMC || r.Order() != order.Desc {
		t.Errorf("Sort()/Order() = %q/%q", r.Sort(), r.Order())
	}
}

func TestNew_EmptyQueryAllowed(t *testing.T) {
	if _, err := New("", 0, 10, "", ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestNew_QueryTooLong(t *testing.T) {
	_, err := New(strings.Repeat("x", MaxQueryLength+1), 0, 10, "", "")
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, domain.ErrInvalidRequest) {
		t.Errorf("error = %v, want ErrInvalidRequest", err)
	}
	if !strings.Contains(err.Error(), "too long") {
		t.Errorf("error = %q", err)
	}
}

func TestNew_QueryAtMaxLength(t *testing.T) {
	if _, err := New(strings.Repeat("x", MaxQueryLength), 0, 10, "", ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestNew_Invalid(t *testing.T) {
	tests := []struct {
		name      string
		skip      int
		key       order.Key
		dir       order.Direction
		errSubstr string
	}{
		{"negative skip", -1, "", "", "skip"},
		{"unknown key", 0, "price", "", "sort key"},
		{"unknown order", 0, order.CMC, "up", "sort order"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New("q", tt.skip, 10, tt.key, tt.dir)
			if !errors.Is(err, domain.ErrInvalidRequest) {
				t.Fatalf("error = %v, want ErrInvalidRequest", err)
			}
			if !strings.Contains(err.Error(), tt.errSubstr) {
				t.Errorf("error = %q, want substring %q", err, tt.errSubstr)
			}
		})
	}
}

func TestNew_TakeClamping(t *testing.T) {
	tests := []struct {
		name     string
		take     int
		wantTake int
	}{
		{"negative", -1, DefaultTake},
		{"zero", 0, DefaultTake},
		{"normal", 16, 16},
		{"over max", 5000, MaxTake},
		{"exactly max", MaxTake, MaxTake},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := New("q", 0, tt.take, "", "")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if r.Take() != tt.wantTake {
				t.Errorf("Take() = %d, want %d", r.Take(), tt.wantTake)
			}
		})
	}
}
