package registry_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tillerworks/tiller/pkg/registry"
)

const workItemCSV = `id,title,status,altitude,path
WI-widget,ship the widget,Frozen,L3,artifacts/wi_widget.md
WI-gadget,ship the gadget,Draft,L3,artifacts/wi_gadget.md
`

func TestLoadWorkItems(t *testing.T) {
	records, err := registry.LoadWorkItems(strings.NewReader(workItemCSV))
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "WI-widget", records[0].ID)
	assert.Equal(t, registry.StatusFrozen, records[0].Status)
	assert.Equal(t, "artifacts/wi_gadget.md", records[1].Path)
}

func TestLoadWorkItems_InvalidStatusWithRowNumber(t *testing.T) {
	csv := "id,title,status,altitude,path\nWI-x,thing,Sideways,L3,p.md\n"
	_, err := registry.LoadWorkItems(strings.NewReader(csv))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "row 2")
	assert.Contains(t, err.Error(), "invalid status")
}

func TestLoadWorkItems_MissingColumns(t *testing.T) {
	csv := "id,title,status,altitude,path\nWI-x,thing,Draft\n"
	_, err := registry.LoadWorkItems(strings.NewReader(csv))
	assert.Error(t, err)
}

func TestLoadWorkItems_WrongHeader(t *testing.T) {
	csv := "identifier,title,status,altitude,path\n"
	_, err := registry.LoadWorkItems(strings.NewReader(csv))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "header column 1")
}

func TestLoadDependencies(t *testing.T) {
	csv := "from_id,to_id,kind\nWI-widget,SPEC-platform,implements\n"
	edges, err := registry.LoadDependencies(strings.NewReader(csv))
	require.NoError(t, err)
	require.Len(t, edges, 1)
	assert.Equal(t, "implements", edges[0].Kind)
}

func TestLoadDependencies_SelfDependency(t *testing.T) {
	csv := "from_id,to_id,kind\nWI-widget,WI-widget,blocks\n"
	_, err := registry.LoadDependencies(strings.NewReader(csv))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "self-dependency")
}

func TestWriteWorkItems_RoundTrip(t *testing.T) {
	records, err := registry.LoadWorkItems(strings.NewReader(workItemCSV))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, registry.WriteWorkItems(&buf, records))

	again, err := registry.LoadWorkItems(&buf)
	require.NoError(t, err)
	assert.Equal(t, records, again)
}
