package ingest

import (
	"context"
	"net/http"

	"github.com/pkg/errors"
	"github.com/tidwall/gjson"

	"github.com/lakeroad/hubspot-ingest/internal/storage"
)

var stagesTable = storage.Table{
	Name: "stage",
	Columns: []storage.Column{
		{Name: "pipeline_id", Type: storage.TypeString},
		{Name: "pipeline_label", Type: storage.TypeString},
		{Name: "stage_id", Type: storage.TypeString},
		{Name: "stage_label", Type: storage.TypeString},
		{Name: "display_order", Type: storage.TypeInt64},
		{Name: "probability", Type: storage.TypeFloat64},
		{Name: "is_closed", Type: storage.TypeBool},
	},
}

// SyncPipelines rebuilds the deal stage dimension from the pipeline
// definitions, one row per stage with its pipeline denormalized in.
func SyncPipelines(ctx context.Context, deps Deps) (int, error) {
	data, err := deps.Client.Do(ctx, http.MethodGet, "/crm/v3/pipelines/deals", nil, nil)
	if err != nil {
		return 0, errors.Wrap(err, "listing deal pipelines")
	}

	var rows []storage.Row
	for _, pipeline := range gjson.GetBytes(data, "results").Array() {
		pipelineID := pipeline.Get("id").String()
		pipelineLabel := pipeline.Get("label").String()
		for _, stage := range pipeline.Get("stages").Array() {
			row := storage.Row{
				"pipeline_id":    pipelineID,
				"pipeline_label": stringValue(pipelineLabel),
				"stage_id":       stage.Get("id").String(),
				"stage_label":    stringValue(stage.Get("label").String()),
				"display_order":  stage.Get("displayOrder").Int(),
				"is_closed":      stage.Get("metadata.isClosed").Bool(),
			}
			if prob := stage.Get("metadata.probability"); prob.Exists() {
				row["probability"] = prob.Float()
			}
			rows = append(rows, row)
		}
	}

	ds := deps.dimDataset(stagesTable)
	if err := ds.WriteSnapshot(ctx, rows); err != nil {
		return 0, err
	}
	return len(rows), nil
}
