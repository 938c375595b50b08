package handler

import (
	"errors"

	"githarvest/internal/pkg/broker"
	"githarvest/internal/services"

	"github.com/hiendaovinh/toolkit/pkg/errorx"
	"github.com/hiendaovinh/toolkit/pkg/httpx-echo"
	"github.com/labstack/echo/v4"
	"github.com/samber/do"
)

type groupDLQ struct {
	container *do.Injector
}

var pipelineTopics = map[string]bool{
	services.TOPIC_COLLECTION_TRIGGER:   true,
	services.TOPIC_CHALLENGE_EVALUATION: true,
	services.TOPIC_CHALLENGE_COMPLETED:  true,
	services.TOPIC_POINT_CHANGED:        true,
}

func resolveTopic(c echo.Context) (string, error) {
	topic := c.Param("topic")
	if !pipelineTopics[topic] {
		return "", errorx.Wrap(errors.New("unknown topic"), errorx.Invalid)
	}
	return topic, nil
}

func (gr *groupDLQ) ListDeadLetters(c echo.Context) error {
	b, err := do.Invoke[*broker.Broker](gr.container)
	if err != nil {
		return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Service))
	}

	ctx := c.Request().Context()

	topic, err := resolveTopic(c)
	if err != nil {
		return httpx.RestAbort(c, nil, err)
	}

	messages, err := b.DeadLetters(ctx, topic, 100)
	if err != nil {
		return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Service))
	}

	return httpx.RestAbort(c, messages, nil)
}

func (gr *groupDLQ) ReplayDeadLetters(c echo.Context) error {
	b, err := do.Invoke[*broker.Broker](gr.container)
	if err != nil {
		return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Service))
	}

	ctx := c.Request().Context()

	topic, err := resolveTopic(c)
	if err != nil {
		return httpx.RestAbort(c, nil, err)
	}

	replayed, err := b.ReplayDeadLetters(ctx, topic)
	if err != nil {
		return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Service))
	}

	return httpx.RestAbort(c, map[string]any{"replayed": replayed}, nil)
}
