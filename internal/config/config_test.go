package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/ctmflow/internal/compiler"
	"github.com/roach88/ctmflow/internal/ir"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ctmflow.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

// TestDefault_RootFolder verifies the default naming scheme.
func TestDefault_RootFolder(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ir.Folder{
		Name:           "LBA_DEMGEN_VB",
		ControlmServer: "IN01",
		OrderMethod:    "Manual",
		SiteStandard:   "Empty",
		Application:    "LBA-DMO-GEN",
		SubApplication: "LBA-TEST-APP",
		RunAs:          "ctmagent",
		Host:           "zzz-linux-agents",
	}, cfg.RootFolder())
	assert.Equal(t, "zzt", cfg.JobPrefix)
}

// TestControlmServer covers every accepted environment.
func TestControlmServer(t *testing.T) {
	want := map[string]string{
		"saas_dev":     "IN01",
		"saas_preprod": "IN01",
		"saas_prod":    "IN01",
		"vse_dev":      "DEV",
		"vse_qa":       "QA",
		"vse_prod":     "PROD",
	}
	for _, env := range Environments {
		cfg := Default()
		cfg.Environment = env
		assert.Equal(t, want[env], cfg.ControlmServer(), env)
	}
}

// TestLoad_OverridesDefaults verifies file values replace defaults and
// unset keys keep them.
func TestLoad_OverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
environment: vse_qa
user_code: WZA
folder: DEMO_GEN
event_prefix: "WZA-"
strict_event_names: true
catalogs: [extra.yaml]
ctm:
  binary: /opt/ctm/bin/ctm
  args: ["-e", "qa"]
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "WZA_DEMO_GEN", cfg.RootFolder().Name)
	assert.Equal(t, "QA", cfg.RootFolder().ControlmServer)
	assert.Equal(t, "WZA-DMO-GEN", cfg.RootFolder().Application)
	assert.Equal(t, "ctmagent", cfg.RunAs)
	assert.Equal(t, []string{"extra.yaml"}, cfg.Catalogs)
	assert.Equal(t, "/opt/ctm/bin/ctm", cfg.CTM.Binary)
	assert.Equal(t, []string{"-e", "qa"}, cfg.CTM.Args)

	opts := cfg.CompilerOptions(nil, nil)
	assert.Equal(t, "WZA-", opts.EventPrefix)
	assert.True(t, opts.StrictEventNames)
	assert.Equal(t, "zzt", opts.JobPrefix)
}

// TestLoad_InvalidEnvironment verifies environments outside the accepted
// list are refused.
func TestLoad_InvalidEnvironment(t *testing.T) {
	_, err := Load(writeConfig(t, "environment: staging\n"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownEnvironment)
	assert.Contains(t, err.Error(), "saas_dev")
}

// TestLoad_Errors covers unreadable and malformed files.
func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "folder: [unterminated\n"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "folder: \"\"\n"))
	assert.Error(t, err)
}

// TestQualify_NoUserCode verifies names are left alone without a user code.
func TestQualify_NoUserCode(t *testing.T) {
	cfg := Default()
	cfg.UserCode = ""
	assert.Equal(t, "DEMGEN_VB", cfg.RootFolder().Name)
	assert.Equal(t, "DMO-GEN", cfg.RootFolder().Application)
}

// TestCompilerOptions_QualifiesFolderOverride verifies a workflow's own
// folder name gets the same user-code prefix as the configured folder.
func TestCompilerOptions_QualifiesFolderOverride(t *testing.T) {
	cfg := Default()
	reg, err := cfg.Registry()
	require.NoError(t, err)

	spec := ir.WorkflowSpec{
		Folder: "NIGHTLY",
		Jobs:   []ir.JobSpec{{ID: "A", Type: "Command", Fields: map[string]any{"Command": "ls"}}},
	}
	plan, err := compiler.Compile(&spec, cfg.CompilerOptions(reg, nil))
	require.NoError(t, err)
	assert.Equal(t, "LBA_NIGHTLY", plan.Folder.Name)

	cfg.UserCode = ""
	assert.Equal(t, "", cfg.FolderPrefix())
	plan, err = compiler.Compile(&spec, cfg.CompilerOptions(reg, nil))
	require.NoError(t, err)
	assert.Equal(t, "NIGHTLY", plan.Folder.Name)
}

// TestRegistry_LoadsCatalogs verifies configured catalogs extend the
// built-in one.
func TestRegistry_LoadsCatalogs(t *testing.T) {
	path := writeConfig(t, "job_types:\n  - type: Custom\n    engine_type: Job:Command\n")
	cfg := Default()
	cfg.Catalogs = []string{path}

	reg, err := cfg.Registry()
	require.NoError(t, err)
	_, err = reg.Lookup("Custom")
	assert.NoError(t, err)
	_, err = reg.Lookup("Data_Oracle")
	assert.NoError(t, err)

	cfg.Catalogs = []string{filepath.Join(t.TempDir(), "nope.yaml")}
	_, err = cfg.Registry()
	assert.Error(t, err)
}
