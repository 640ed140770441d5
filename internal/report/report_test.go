package report

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phillipberndt/needrestart/internal/model"
)

func TestApplyDropsBlacklistedUnit(t *testing.T) {
	rpt := model.NewReport()
	rpt.AddUnit(model.ControllableUnit{Kind: model.UnitServiceUnit, Name: "cron.service"})
	rpt.AddUnit(model.ControllableUnit{Kind: model.UnitServiceUnit, Name: "sshd.service"})

	bl, err := CompileBlacklistRC([]string{`^cron\.service$`})
	require.NoError(t, err)

	Apply(rpt, Policy{BlacklistRC: bl})

	assert.False(t, rpt.HasUnitNamed("cron.service"))
	assert.True(t, rpt.HasUnitNamed("sshd.service"))
}

func TestApplyNeverDropsUserSessions(t *testing.T) {
	rpt := model.NewReport()
	rpt.AddUserSession(1000, "/dev/pts/0", "bash", 123)

	bl, err := CompileBlacklistRC([]string{`.*`})
	require.NoError(t, err)
	Apply(rpt, Policy{BlacklistRC: bl})

	assert.NotEmpty(t, rpt.UserSessions)
}

func TestApplyAttachesOverrideRCUntouched(t *testing.T) {
	rpt := model.NewReport()
	rules := []model.OverrideRule{{Pattern: "sshd.*", Restart: false}}
	Apply(rpt, Policy{OverrideRC: rules})

	assert.Equal(t, rules, rpt.OverrideRC)
}

func TestWriteBatchFormat(t *testing.T) {
	rpt := model.NewReport()
	rpt.AddUnit(model.ControllableUnit{Kind: model.UnitServiceUnit, Name: "foo.service"})
	rpt.AddUnattributedPid(model.PidInfo{Pid: 42, Comm: "orphan"}, model.ObsolescenceReason{Kind: model.ReasonDeletedExe})
	rpt.Kernel = &model.KernelVerdict{Kind: model.KernelVersionUpgrade, Current: "5.10.0-1-amd64", Expected: "5.10.0-2-amd64"}

	var buf strings.Builder
	require.NoError(t, WriteBatch(&buf, "1.0.0", rpt))

	out := buf.String()
	assert.Contains(t, out, "NEEDRESTART-VER: 1.0.0\n")
	assert.Contains(t, out, "NEEDRESTART-SVC: foo.service\n")
	assert.Contains(t, out, "NEEDRESTART-PID: 42 orphan\n")
	assert.Contains(t, out, "NEEDRESTART-KCUR: 5.10.0-1-amd64\n")
	assert.Contains(t, out, "NEEDRESTART-KEXP: 5.10.0-2-amd64\n")
	assert.Contains(t, out, "NEEDRESTART-KSTA: 3\n")
}

func TestWriteBatchOmitsUnknownUnitAndEmptyExpected(t *testing.T) {
	rpt := model.NewReport()
	rpt.AddUnit(model.ControllableUnit{Kind: model.UnitUnknown})
	rpt.Kernel = &model.KernelVerdict{Kind: model.KernelUpToDate, Current: "5.10.0-1-amd64"}

	var buf strings.Builder
	require.NoError(t, WriteBatch(&buf, "1.0.0", rpt))

	out := buf.String()
	assert.NotContains(t, out, "NEEDRESTART-SVC:")
	assert.NotContains(t, out, "NEEDRESTART-KEXP:")
	assert.Contains(t, out, "NEEDRESTART-KSTA: 1\n")
}
