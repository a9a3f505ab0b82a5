package processing

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/teilomillet/studyscribe/config"
	"github.com/teilomillet/studyscribe/errors"
	"github.com/teilomillet/studyscribe/server/metrics"
	"github.com/teilomillet/studyscribe/server/prompt"
	"github.com/teilomillet/studyscribe/server/provider"
	"github.com/teilomillet/studyscribe/server/validation"
)

// FailurePolicy decides what an entry point does with an upstream failure.
type FailurePolicy int

const (
	// Soften replaces the failure with a fallback message and a 200.
	Soften FailurePolicy = iota
	// Surface returns the UpstreamModelError to the caller.
	Surface
)

func (p FailurePolicy) String() string {
	if p == Surface {
		return "surface"
	}
	return "soften"
}

// Dispatcher runs transformations against one invoker. It holds no
// per-request state and is safe for concurrent use.
//
// Dispatch follows the dispatcher's policy. StreamChat and GenerateExam
// always surface failures.
type Dispatcher struct {
	invoker   provider.Invoker
	validator *validation.Validator
	metrics   *metrics.Metrics
	logger    *zap.Logger
	fallback  string
	policy    FailurePolicy
}

// NewDispatcher creates a dispatcher with the Soften policy. validator,
// m and logger may be nil.
func NewDispatcher(invoker provider.Invoker, v *validation.Validator, cfg config.GenerationConfig, m *metrics.Metrics, logger *zap.Logger) *Dispatcher {
	if v == nil {
		v = validation.New(nil, 0)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	fallback := cfg.FallbackMessage
	if fallback == "" {
		fallback = config.DefaultFallbackMessage
	}
	return &Dispatcher{
		invoker:   invoker,
		validator: v,
		metrics:   m,
		logger:    logger,
		fallback:  fallback,
		policy:    Soften,
	}
}

// WithPolicy returns a copy of d using policy p for Dispatch.
func (d *Dispatcher) WithPolicy(p FailurePolicy) *Dispatcher {
	cp := *d
	cp.policy = p
	return &cp
}

// Policy reports the policy Dispatch applies.
func (d *Dispatcher) Policy() FailurePolicy { return d.policy }

// Dispatch validates req, renders its prompt, calls the model and
// normalizes the reply. Invalid requests never reach the model.
func (d *Dispatcher) Dispatch(ctx context.Context, req GenerationRequest) (GenerationResult, error) {
	action, err := prompt.ParseAction(string(req.Action))
	if err != nil {
		d.observe(string(req.Action), metrics.OutcomeInvalid)
		return GenerationResult{}, err
	}
	if err := d.validate(action, req); err != nil {
		d.observe(string(action), metrics.OutcomeInvalid)
		return GenerationResult{}, err
	}

	p, err := prompt.Build(action, req.Content, req.Options)
	if err != nil {
		d.observe(string(action), metrics.OutcomeFailed)
		return GenerationResult{}, errors.NewInternalError("", err)
	}

	raw, err := d.invoker.Generate(ctx, p.Text, p.System)
	if err != nil {
		return d.upstreamFailure(action, err)
	}

	result, warn := Normalize(action, raw)
	if warn != nil {
		d.logger.Warn("tag output fallback",
			zap.String("action", string(action)),
			zap.String("error_type", string(warn.Type)),
			zap.Any("details", warn.Details),
		)
		if d.metrics != nil {
			d.metrics.TagFallbacks.Inc()
		}
	}
	d.observe(string(action), metrics.OutcomeOK)
	return result, nil
}

func (d *Dispatcher) validate(action prompt.Action, req GenerationRequest) error {
	if err := d.validator.Struct(req.Options); err != nil {
		return err
	}
	if action == prompt.ActionRecommendations {
		if len(req.Options.RecentTopics) == 0 {
			return errors.NewInvalidRequestError("field 'recentTopics' is required", map[string]interface{}{
				"field": "options.recentTopics",
			})
		}
		if strings.TrimSpace(req.Options.StudyHistory) == "" {
			return errors.NewInvalidRequestError("field 'studyHistory' is required", map[string]interface{}{
				"field": "options.studyHistory",
			})
		}
	}
	if action.RequiresContent() && strings.TrimSpace(req.Content) == "" {
		return errors.NewInvalidRequestError("field 'content' is required", map[string]interface{}{
			"field": "content",
		})
	}
	return d.validator.Content("content", req.Content)
}

func (d *Dispatcher) upstreamFailure(action prompt.Action, err error) (GenerationResult, error) {
	upstream := asUpstream(err)
	if d.policy == Surface {
		d.observe(string(action), metrics.OutcomeFailed)
		return GenerationResult{}, upstream
	}

	errors.LogError(d.logger, upstream, "")
	d.observe(string(action), metrics.OutcomeSoftFail)
	result := GenerationResult{Text: d.fallback, Degraded: true}
	if action == prompt.ActionExtractTags {
		result.Tags = []string{}
	}
	return result, nil
}

func (d *Dispatcher) observe(action, outcome string) {
	if d.metrics != nil {
		d.metrics.ObserveGeneration(action, outcome)
	}
}

// asUpstream keeps ScribeErrors from the invoker and wraps anything else.
func asUpstream(err error) *errors.ScribeError {
	var se *errors.ScribeError
	if errors.As(err, &se) {
		return se
	}
	return errors.NewUpstreamModelError("invoker", err)
}
