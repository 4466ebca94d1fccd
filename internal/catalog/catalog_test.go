package catalog

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseScenarioSubCategoryLookupIgnoresCase(t *testing.T) {
	c, err := Parse([]byte(`{"categories":[{"code":"TASK","name":"Task","subCategories":[{"code":"TASK_DUE"}]}]}`))
	require.NoError(t, err)

	p := NewProvider(c)
	sub, ok := p.GetSubCategoryByCode("task_due")
	require.True(t, ok)
	require.Equal(t, "TASK_DUE", sub.Code)
	require.Equal(t, "TASK", sub.CategoryCode)

	parent, ok := p.ParentOf(sub)
	require.True(t, ok)
	require.Equal(t, "Task", parent.Name)

	owner, ok := sub.Category(p)
	require.True(t, ok)
	require.Equal(t, parent.Code, owner.Code)

	_, ok = sub.Category(nil)
	require.False(t, ok)
}

func TestLoadToleratesCommentsAndTrailingCommas(t *testing.T) {
	p := Load(filepath.Join("testdata", "catalog.jsonc"))
	require.False(t, p.Degraded())
	require.NoError(t, p.Err())

	categories := p.Categories()
	require.Len(t, categories, 3)
	require.Equal(t, []string{"TASK", "Project", "SYSTEM"}, []string{categories[0].Code, categories[1].Code, categories[2].Code})
	require.Len(t, categories[0].SubCategories, 2)

	for _, code := range []string{"task", "TASK", " Task "} {
		category, ok := p.GetCategoryByCode(code)
		require.True(t, ok, code)
		require.Equal(t, "TASK", category.Code)
	}

	category, ok := p.GetCategoryByCode("PROJECT")
	require.True(t, ok)
	require.Equal(t, "Project", category.Code)

	sub, ok := p.GetSubCategoryByCode("project_archived")
	require.True(t, ok)
	require.Equal(t, "Project", sub.CategoryCode)
}

func TestLookupsReturnFalseForBlankOrUnknown(t *testing.T) {
	p := Load(filepath.Join("testdata", "catalog.jsonc"))

	for _, code := range []string{"", "   ", "UNKNOWN"} {
		_, ok := p.GetCategoryByCode(code)
		require.False(t, ok)
		_, ok = p.GetSubCategoryByCode(code)
		require.False(t, ok)
	}

	var nilProvider *Provider
	_, ok := nilProvider.GetCategoryByCode("TASK")
	require.False(t, ok)
}

func TestCategoriesReturnsCopy(t *testing.T) {
	p := Load(filepath.Join("testdata", "catalog.jsonc"))

	categories := p.Categories()
	categories[0].SubCategories[0].CategoryCode = "HACKED"
	categories[0].Code = "HACKED"

	sub, ok := p.GetSubCategoryByCode("TASK_DUE")
	require.True(t, ok)
	require.Equal(t, "TASK", sub.CategoryCode)
	_, ok = p.GetCategoryByCode("HACKED")
	require.False(t, ok)
}

func TestLoadMissingFileDegradesToEmptyCatalog(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	p := Load(filepath.Join(t.TempDir(), "missing.json"), WithLogger(zap.New(core)))

	require.True(t, p.Degraded())
	require.True(t, errors.Is(p.Err(), os.ErrNotExist))
	require.Empty(t, p.Categories())
	_, ok := p.GetCategoryByCode("TASK")
	require.False(t, ok)
	require.Equal(t, 1, logs.Len())

	status := p.Status()
	require.True(t, status.Degraded)
	require.NotEmpty(t, status.Error)
}

func TestLoadRejectsInvalidDocuments(t *testing.T) {
	for _, name := range []string{"duplicate.json", "invalid_schema.json"} {
		p := Load(filepath.Join("testdata", name), WithLogger(zap.NewNop()))
		require.True(t, p.Degraded(), name)
		require.Empty(t, p.Categories(), name)
	}

	_, err := Parse([]byte(`{"categories": [`))
	require.Error(t, err)
}

func TestBuildRejectsDuplicateSubCategoriesAcrossCategories(t *testing.T) {
	_, err := Build([]CategoryDefinition{
		{Code: "TASK", SubCategories: []SubCategoryDefinition{{Code: "DUE"}}},
		{Code: "PROJECT", SubCategories: []SubCategoryDefinition{{Code: "due"}}},
	})
	require.Error(t, err)
}

func TestReloadKeepsPreviousSnapshotOnFailure(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "catalog.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"categories":[{"code":"TASK"}]}`), 0o600))

	p := Load(path, WithLogger(zap.NewNop()))
	require.False(t, p.Degraded())

	require.NoError(t, os.WriteFile(path, []byte(`{"categories":[{"code":"TASK"},{"code":"PROJECT"}]}`), 0o600))
	require.NoError(t, p.Reload(path))
	require.Len(t, p.Categories(), 2)

	require.NoError(t, os.WriteFile(path, []byte(`not json`), 0o600))
	require.Error(t, p.Reload(path))
	require.Len(t, p.Categories(), 2)
	require.False(t, p.Degraded())
}

func TestClassify(t *testing.T) {
	p := Load(filepath.Join("testdata", "catalog.jsonc"))

	got, err := p.Classify("task", "")
	require.NoError(t, err)
	require.Equal(t, Classification{MainCategoryCode: "TASK"}, got)

	got, err = p.Classify("", "task_assigned")
	require.NoError(t, err)
	require.Equal(t, Classification{MainCategoryCode: "TASK", SubCategoryCode: "TASK_ASSIGNED"}, got)

	_, err = p.Classify("project", "task_due")
	require.ErrorIs(t, err, ErrUnknownCode)

	_, err = p.Classify("nope", "")
	require.ErrorIs(t, err, ErrUnknownCode)

	_, err = p.Classify("", "")
	require.ErrorIs(t, err, ErrUnknownCode)
}

func TestClassifyPassesThroughWhenDegraded(t *testing.T) {
	p := Load(filepath.Join(t.TempDir(), "missing.json"), WithLogger(zap.NewNop()))

	got, err := p.Classify(" TASK ", "task_due")
	require.NoError(t, err)
	require.Equal(t, Classification{MainCategoryCode: "TASK", SubCategoryCode: "TASK_DUE"}, got)

	got, err = p.Classify("", " billing_overdue ")
	require.NoError(t, err)
	require.Equal(t, Classification{SubCategoryCode: "BILLING_OVERDUE"}, got)
}
