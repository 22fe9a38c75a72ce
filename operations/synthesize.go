package operations

import (
	"context"
	"fmt"
	"log"

	"github.com/CorrelAid/sbv2_web/engine"
	"github.com/CorrelAid/sbv2_web/models"
)

// ModelIdent is the name the uploaded voice model is loaded under. Every
// submission gets its own holder, so one fixed name is enough.
const ModelIdent = "tmp"

// Synthesize runs the engine call chain for one submission: global init,
// holder construction, model load, synthesis. The holder is always closed.
func Synthesize(ctx context.Context, eng engine.Engine, data models.ProcessedFormData) ([]byte, error) {
	if err := eng.Init(ctx); err != nil {
		return nil, err
	}

	holder, err := eng.NewHolder(ctx, data.Tokenizer, data.Bert)
	if err != nil {
		return nil, fmt.Errorf("create holder: %w", err)
	}
	defer func() {
		if closeErr := holder.Close(context.WithoutCancel(ctx)); closeErr != nil {
			log.Printf("Failed to close holder: %v", closeErr)
		}
	}()

	if err := holder.Load(ctx, ModelIdent, data.Model); err != nil {
		return nil, fmt.Errorf("load model: %w", err)
	}

	audio, err := holder.Synthesize(ctx, ModelIdent, data.Text)
	if err != nil {
		return nil, fmt.Errorf("synthesize: %w", err)
	}

	return audio, nil
}
