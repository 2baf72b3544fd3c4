package sequence

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormat(t *testing.T) {
	assert.Equal(t, "FAC-2026-000001", Format("ordinary", 2026, 1))
	assert.Equal(t, "SIM-2026-000042", Format("simplified", 2026, 42))
	assert.Equal(t, "PRO-2025-001000", Format("proforma", 2025, 1000))
	assert.Equal(t, "REC-2026-000007", Format("corrective", 2026, 7))
}

func TestFormatUnknownTypeFallsBack(t *testing.T) {
	assert.Equal(t, "DOC-2026-000003", Format("mystery", 2026, 3))
}

func TestPeriodKey(t *testing.T) {
	assert.Equal(t, "2026", PeriodKey(time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)))
	// December 31st and January 1st land in different periods
	assert.Equal(t, "2025", PeriodKey(time.Date(2025, 12, 31, 23, 59, 0, 0, time.UTC)))
	assert.Equal(t, "2026", PeriodKey(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)))
}
