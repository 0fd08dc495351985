package postgres

import (
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/clubconnect/clubconnect/internal/core/domain"
)

func TestUpdateRoleArgs(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	args := updateRoleArgs("u1", domain.RoleFan, now)

	if len(args) != 4 || args[0] != "u1" || args[1] != "fan" || args[2] != now {
		t.Fatalf("unexpected args: %v", args)
	}
	if !reflect.DeepEqual(args[3], []string{"club", "club_owner", "creator", "fan"}) {
		t.Fatalf("unexpected known roles: %v", args[3])
	}
	if !strings.Contains(updateRoleQuery, "role IS NULL OR NOT (lower(btrim(role)) = ANY($4))") {
		t.Fatalf("update must match every role that reads as unset:\n%s", updateRoleQuery)
	}
}

func TestScanProfile_UnknownRoleReadsUnset(t *testing.T) {
	row := fakeRow{role: "admin"}
	p, err := scanProfile(row)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if p.Role != domain.RoleUnset {
		t.Fatalf("expected unset role, got %q", p.Role)
	}
}

type fakeRow struct {
	role string
}

func (r fakeRow) Scan(dest ...any) error {
	*dest[0].(*string) = "u1"
	*dest[3].(**string) = &r.role
	return nil
}
