package export

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yofu/dxf"
	"github.com/yofu/dxf/entity"
)

func TestDXFScene_CommitAndSave(t *testing.T) {
	scene, err := NewDXFScene()
	require.NoError(t, err)

	result := buildTestResult()
	for _, s := range result.Sheets {
		require.NoError(t, scene.Commit(s))
	}
	sheets, objects := scene.Counts()
	assert.Equal(t, 2, sheets)
	assert.Equal(t, 5, objects)

	path := filepath.Join(t.TempDir(), "scene.dxf")
	require.NoError(t, scene.Save(path))

	d, err := dxf.Open(path)
	require.NoError(t, err)

	lines := 0
	for _, e := range d.Entities() {
		if _, ok := e.(*entity.Line); ok {
			lines++
		}
	}
	// Two sheet rectangles, four object rectangles and a triangle.
	assert.Equal(t, 2*4+4*4+3, lines)
}

func TestDXFScene_Clear(t *testing.T) {
	scene, err := NewDXFScene()
	require.NoError(t, err)

	require.NoError(t, scene.Commit(buildTestResult().Sheets[0]))
	require.NoError(t, scene.Clear())

	sheets, objects := scene.Counts()
	assert.Zero(t, sheets)
	assert.Zero(t, objects)
}
