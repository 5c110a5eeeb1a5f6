/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package canvas

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mangatrans/internal/domain"
	"mangatrans/internal/vector"
)

func TestZoomRangeAlwaysContainsOne(t *testing.T) {
	for _, c := range []Config{{MinZoom: 2, MaxZoom: 4}, {MinZoom: 0.1, MaxZoom: 0.5}} {
		got := c.withDefaults()
		assert.LessOrEqual(t, got.MinZoom, 1.0)
		assert.GreaterOrEqual(t, got.MaxZoom, 1.0)

		wb := New(c)
		wb.LoadPage(domain.Page{ImageReference: "p.png", PageCount: 1})
		assert.Equal(t, 1.0, wb.Zoom())
	}
}

func TestZoomAtKeepsPointerAnchored(t *testing.T) {
	points := []vector.Pt{vector.P(0, 0), vector.P(400, 300), vector.P(-35, 812.5), vector.P(1280, 2)}
	pans := []vector.Pt{vector.P(0, 0), vector.P(-120, 44), vector.P(300, -900)}
	for _, pan := range pans {
		for _, p := range points {
			for _, dir := range []float64{1, -1} {
				tr := NewTransform(0.2, 5, 0.12)
				tr.SetPan(pan)
				require.True(t, tr.ZoomAt(p, 1))
				local := tr.ToLocal(p)
				require.True(t, tr.ZoomAt(p, dir))
				got := tr.ToScreen(local)
				assert.InDelta(t, p.X, got.X, 1e-9, "pan=%v p=%v dir=%v", pan, p, dir)
				assert.InDelta(t, p.Y, got.Y, 1e-9, "pan=%v p=%v dir=%v", pan, p, dir)
			}
		}
	}
}

func TestZoomInAt400x300(t *testing.T) {
	tr := NewTransform(0.2, 5, 0.12)
	p := vector.P(400, 300)
	local := tr.ToLocal(p)

	require.True(t, tr.ZoomAt(p, 1))
	assert.InDelta(t, 1.12, tr.Zoom(), 1e-12)
	got := tr.ToScreen(local)
	assert.InDelta(t, 400, got.X, 1e-9)
	assert.InDelta(t, 300, got.Y, 1e-9)
	assert.InDelta(t, -48, tr.Pan().X, 1e-9)
	assert.InDelta(t, -36, tr.Pan().Y, 1e-9)
}

func TestZoomAtBoundsIsNoop(t *testing.T) {
	tr := NewTransform(0.2, 5, 0.12)
	p := vector.P(10, 20)
	for i := 0; i < 100 && tr.ZoomAt(p, 1); i++ {
	}
	assert.Equal(t, 5.0, tr.Zoom())
	pan := tr.Pan()
	assert.False(t, tr.ZoomAt(p, 1))
	assert.Equal(t, pan, tr.Pan())

	for i := 0; i < 100 && tr.ZoomAt(p, -1); i++ {
	}
	assert.Equal(t, 0.2, tr.Zoom())
	assert.False(t, tr.ZoomAt(p, -1))
	assert.False(t, tr.ZoomAt(p, 0))
}

func TestZoomAtUsesOnlyDirectionSign(t *testing.T) {
	a := NewTransform(0.2, 5, 0.12)
	b := NewTransform(0.2, 5, 0.12)
	a.ZoomAt(vector.P(5, 5), 120)
	b.ZoomAt(vector.P(5, 5), 1)
	assert.Equal(t, a.Zoom(), b.Zoom())
	assert.Equal(t, a.Pan(), b.Pan())
}

func TestMatrixMatchesToScreenAndInverse(t *testing.T) {
	tr := NewTransform(0.2, 5, 0.12)
	tr.SetPan(vector.P(13, -7))
	tr.ZoomAt(vector.P(50, 50), 1)
	local := vector.P(33, 44)
	m := tr.Matrix()
	s := m.Apply(local)
	assert.Equal(t, tr.ToScreen(local), s)
	inv, ok := m.Invert()
	require.True(t, ok)
	back := inv.Apply(s)
	assert.InDelta(t, local.X, back.X, 1e-9)
	assert.InDelta(t, local.Y, back.Y, 1e-9)

	tr.Reset()
	assert.Equal(t, 1.0, tr.Zoom())
	assert.Equal(t, vector.Pt{}, tr.Pan())
}
