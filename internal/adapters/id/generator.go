package id

import (
	gonanoid "github.com/matoous/go-nanoid/v2"
)

type Generator struct{}

func New() *Generator {
	return &Generator{}
}

func (g *Generator) generate(prefix string) string {
	id, err := gonanoid.New(21)
	if err != nil {
		return prefix + "_fallback"
	}
	return prefix + "_" + id
}

func (g *Generator) GeneratePromptVersionID() string {
	return g.generate("pv")
}

func (g *Generator) GenerateDatasetID() string {
	return g.generate("ds")
}

func (g *Generator) GenerateDatasetItemID() string {
	return g.generate("dsi")
}

func (g *Generator) GenerateDatasetRunID() string {
	return g.generate("dr")
}

func (g *Generator) GenerateDatasetRunItemID() string {
	return g.generate("dri")
}

func (g *Generator) GenerateScoreID() string {
	return g.generate("sc")
}

func (g *Generator) GenerateTraceID() string {
	return g.generate("tr")
}

func (g *Generator) GenerateObservationID() string {
	return g.generate("ob")
}

func (g *Generator) GenerateSessionID() string {
	return g.generate("ses")
}
