package processing

import (
	"context"

	"github.com/teilomillet/studyscribe/errors"
	"github.com/teilomillet/studyscribe/server/metrics"
	"github.com/teilomillet/studyscribe/server/prompt"
)

// GenerateExam builds an exam from subject and topic. Upstream failures
// are returned to the caller, never softened.
func (d *Dispatcher) GenerateExam(ctx context.Context, req prompt.ExamRequest) (GenerationResult, error) {
	action := string(prompt.ActionExam)
	if err := d.validator.Struct(req); err != nil {
		d.observe(action, metrics.OutcomeInvalid)
		return GenerationResult{}, err
	}

	p, err := prompt.BuildExam(req.WithDefaults())
	if err != nil {
		d.observe(action, metrics.OutcomeFailed)
		return GenerationResult{}, errors.NewInternalError("", err)
	}

	text, err := d.invoker.Generate(ctx, p.Text, p.System)
	if err != nil {
		d.observe(action, metrics.OutcomeFailed)
		return GenerationResult{}, asUpstream(err)
	}
	d.observe(action, metrics.OutcomeOK)
	return GenerationResult{Text: text}, nil
}
