package pass

import "testing"

func TestFinalizeUSB(t *testing.T) {
	cases := []struct {
		name    string
		current Status
		persons []Status
		want    Status
		changed bool
	}{
		{
			name:    "in progress",
			current: StatusPendingUSB,
			persons: []Status{StatusApprovedUSB, StatusPendingUSB, StatusDeclinedUSB},
			want:    StatusPendingUSB,
		},
		{
			name:    "two approved one declined",
			current: StatusPendingUSB,
			persons: []Status{StatusApprovedUSB, StatusApprovedUSB, StatusDeclinedUSB},
			want:    StatusApprovedUSB,
			changed: true,
		},
		{
			name:    "all declined",
			current: StatusPendingUSB,
			persons: []Status{StatusDeclinedUSB, StatusDeclinedUSB, StatusDeclinedUSB},
			want:    StatusDeclinedUSB,
			changed: true,
		},
		{
			name:    "single person approved",
			current: StatusPendingUSB,
			persons: []Status{StatusApprovedUSB},
			want:    StatusApprovedUSB,
			changed: true,
		},
		{
			name:    "no persons",
			current: StatusPendingUSB,
			persons: nil,
			want:    StatusPendingUSB,
		},
	}
	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			got, changed := Finalize(StageUSB, tt.current, tt.persons)
			if got != tt.want || changed != tt.changed {
				t.Fatalf("Finalize = (%s, %v), want (%s, %v)", got, changed, tt.want, tt.changed)
			}
		})
	}
}

func TestFinalizeASDirect(t *testing.T) {
	cases := []struct {
		name    string
		persons []Status
		want    Status
		changed bool
	}{
		{
			name:    "half processed",
			persons: []Status{StatusApprovedAS, StatusPendingAS},
			want:    StatusPendingAS,
		},
		{
			name:    "one approved one declined",
			persons: []Status{StatusApprovedAS, StatusDeclinedAS},
			want:    StatusApprovedAS,
			changed: true,
		},
		{
			name:    "both declined",
			persons: []Status{StatusDeclinedAS, StatusDeclinedAS},
			want:    StatusDeclinedAS,
			changed: true,
		},
	}
	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			got, changed := Finalize(StageAS, StatusPendingAS, tt.persons)
			if got != tt.want || changed != tt.changed {
				t.Fatalf("Finalize = (%s, %v), want (%s, %v)", got, changed, tt.want, tt.changed)
			}
		})
	}
}

func TestFinalizeASViaUSB(t *testing.T) {
	cases := []struct {
		name    string
		persons []Status
		want    Status
		changed bool
	}{
		{
			name:    "nothing processed by AS yet",
			persons: []Status{StatusApprovedUSB, StatusApprovedUSB, StatusDeclinedUSB},
			want:    StatusApprovedUSB,
		},
		{
			name:    "one of two pending",
			persons: []Status{StatusApprovedAS, StatusApprovedUSB, StatusDeclinedUSB},
			want:    StatusApprovedUSB,
		},
		{
			name:    "both decided, one approved",
			persons: []Status{StatusApprovedAS, StatusDeclinedAS, StatusDeclinedUSB},
			want:    StatusApprovedAS,
			changed: true,
		},
		{
			name:    "both decided, none approved",
			persons: []Status{StatusDeclinedAS, StatusDeclinedAS, StatusDeclinedUSB},
			want:    StatusDeclinedAS,
			changed: true,
		},
	}
	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			got, changed := Finalize(StageAS, StatusApprovedUSB, tt.persons)
			if got != tt.want || changed != tt.changed {
				t.Fatalf("Finalize = (%s, %v), want (%s, %v)", got, changed, tt.want, tt.changed)
			}
		})
	}
}

func TestFinalizeIdempotent(t *testing.T) {
	persons := []Status{StatusApprovedUSB, StatusApprovedUSB, StatusDeclinedUSB}

	first, changed := Finalize(StageUSB, StatusPendingUSB, persons)
	if !changed || first != StatusApprovedUSB {
		t.Fatalf("first run = (%s, %v)", first, changed)
	}
	second, changed := Finalize(StageUSB, first, persons)
	if changed {
		t.Fatalf("second run changed status to %s", second)
	}

	// Same property for the AS branches.
	persons = []Status{StatusApprovedAS, StatusDeclinedAS}
	first, changed = Finalize(StageAS, StatusPendingAS, persons)
	if !changed || first != StatusApprovedAS {
		t.Fatalf("first AS run = (%s, %v)", first, changed)
	}
	if _, changed = Finalize(StageAS, first, persons); changed {
		t.Fatal("AS finalization is not idempotent")
	}
}

func TestFinalizeTerminalStatusUntouched(t *testing.T) {
	for _, current := range []Status{StatusDeclinedUSB, StatusDeclinedAS, StatusApprovedAS, StatusIssued, StatusClosed} {
		if got, changed := Finalize(StageAS, current, []Status{StatusApprovedAS}); changed {
			t.Fatalf("Finalize changed %s to %s", current, got)
		}
	}
}
