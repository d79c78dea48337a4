package support

import (
	"fmt"

	"github.com/MeKo-Tech/annotator/internal/editor"
	"github.com/cucumber/godog"
)

// RegisterTopologySteps registers steps that edit a standalone polygon.
func (testCtx *TestContext) RegisterTopologySteps(sc *godog.ScenarioContext) {
	sc.Step(`^the standalone polygon "([^"]*)"$`, testCtx.theStandalonePolygon)
	sc.Step(`^I insert a vertex at (-?\d+),(-?\d+)$`, testCtx.iInsertAVertexAt)
	sc.Step(`^I delete vertex (\d+)$`, testCtx.iDeleteVertex)
	sc.Step(`^I delete the inserted vertex$`, testCtx.iDeleteTheInsertedVertex)
	sc.Step(`^the vertex is inserted at index (\d+)$`, testCtx.theVertexIsInsertedAt)
	sc.Step(`^the standalone polygon is now "([^"]*)"$`, testCtx.theStandalonePolygonIsNow)
}

func (testCtx *TestContext) theStandalonePolygon(points string) error {
	poly, err := parsePolygon(points)
	if err != nil {
		return err
	}
	testCtx.Polygon = poly
	return nil
}

func (testCtx *TestContext) iInsertAVertexAt(x, y int) error {
	testCtx.Polygon, testCtx.InsertIndex = editor.InsertVertex(testCtx.Polygon, x, y)
	return nil
}

func (testCtx *TestContext) iDeleteVertex(i int) error {
	testCtx.Polygon, testCtx.LastChanged = editor.DeleteVertex(testCtx.Polygon, i)
	return nil
}

func (testCtx *TestContext) iDeleteTheInsertedVertex() error {
	return testCtx.iDeleteVertex(testCtx.InsertIndex)
}

func (testCtx *TestContext) theVertexIsInsertedAt(want int) error {
	if testCtx.InsertIndex != want {
		return fmt.Errorf("expected insertion at index %d, got %d", want, testCtx.InsertIndex)
	}
	return nil
}

func (testCtx *TestContext) theStandalonePolygonIsNow(want string) error {
	return expectPolygon(testCtx.Polygon, want)
}
