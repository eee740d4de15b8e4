package domain

import (
	"errors"
	"testing"
)

func TestParseDialMethodFromString(t *testing.T) {
	t.Parallel()

	got, err := ParseDialMethodFromString(" ratio ")
	if err != nil {
		t.Fatalf("ParseDialMethodFromString() unexpected error = %v", err)
	}
	if got != DialMethodRatio {
		t.Fatalf("ParseDialMethodFromString() = %s, want %s", got, DialMethodRatio)
	}

	_, err = ParseDialMethodFromString("MANUAL")
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("ParseDialMethodFromString() error = %v, want ErrValidation", err)
	}
}

func TestCampaignValidate(t *testing.T) {
	t.Parallel()

	campaign := Campaign{Name: "winter-renewals", DialMethod: DialMethodProgressive}
	if err := campaign.Validate(); err != nil {
		t.Fatalf("Validate() unexpected error = %v", err)
	}

	campaign.Name = "  "
	if err := campaign.Validate(); !errors.Is(err, ErrValidation) {
		t.Fatalf("Validate() error = %v, want ErrValidation for blank name", err)
	}

	campaign.Name = "winter-renewals"
	campaign.DialMethod = "MANUAL"
	if err := campaign.Validate(); !errors.Is(err, ErrValidation) {
		t.Fatalf("Validate() error = %v, want ErrValidation for dial method", err)
	}
}

func TestDataListValidate(t *testing.T) {
	t.Parallel()

	list := DataList{Name: "fresh-leads", BlendWeight: 0}
	if err := list.Validate(); err != nil {
		t.Fatalf("Validate() unexpected error = %v, weight zero is allowed", err)
	}

	list.BlendWeight = -1
	if err := list.Validate(); !errors.Is(err, ErrValidation) {
		t.Fatalf("Validate() error = %v, want ErrValidation for negative weight", err)
	}

	list.BlendWeight = 1
	list.Name = ""
	if err := list.Validate(); !errors.Is(err, ErrValidation) {
		t.Fatalf("Validate() error = %v, want ErrValidation for blank name", err)
	}
}
