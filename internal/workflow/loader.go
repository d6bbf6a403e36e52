package workflow

import (
	"github.com/starford/graphflow/internal/form"
	"github.com/starford/graphflow/internal/graph"
)

// Load restores a record into model and cache. When the body carries a flow
// the canvas is replaced verbatim; the cache is always rebuilt from the saved
// configs with every entry marked as having no schema.
func Load(rec *Record, model *graph.Model, cache *form.Cache) error {
	body, err := ParseBody(rec.Body)
	if err != nil {
		return err
	}
	if body.Flow != nil {
		model.Restore(*body.Flow)
	}
	cache.Restore(body.Configs)
	return nil
}
