package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/studyflow/internal/services"
	"github.com/desertthunder/studyflow/internal/shared"
)

// APIGet makes a direct GET request with the stored session.
func (r *Runner) APIGet(ctx context.Context, cmd *cli.Command) error {
	path, err := requireArg(cmd, "path")
	if err != nil {
		return err
	}
	svc, err := r.connect()
	if err != nil {
		return err
	}

	r.logger.Info("GET request", "path", path)

	resp, err := svc.Client.Do(ctx, services.Request{Method: http.MethodGet, Path: path})
	if err != nil {
		return fmt.Errorf("%w: %w", shared.ErrAPIRequest, err)
	}
	return r.writeResponse(resp, !cmd.Bool("json"))
}

// APIPost makes a direct POST request with a JSON body.
func (r *Runner) APIPost(ctx context.Context, cmd *cli.Command) error {
	path, err := requireArg(cmd, "path")
	if err != nil {
		return err
	}
	data := cmd.String("data")
	if data == "" {
		return fmt.Errorf("%w: --data flag is required", shared.ErrMissingArgument)
	}
	if !json.Valid([]byte(data)) {
		return fmt.Errorf("%w: data is not valid JSON", shared.ErrInvalidInput)
	}

	svc, err := r.connect()
	if err != nil {
		return err
	}

	r.logger.Info("POST request", "path", path)

	resp, err := svc.Client.Do(ctx, services.Request{
		Method: http.MethodPost,
		Path:   path,
		Body:   json.RawMessage(data),
	})
	if err != nil {
		return fmt.Errorf("%w: %w", shared.ErrAPIRequest, err)
	}
	return r.writeResponse(resp, true)
}

func (r *Runner) writeResponse(resp *services.Response, pretty bool) error {
	if resp.NoContent {
		return r.writePlain("%d No Content\n", resp.Status)
	}
	if resp.IsJSON {
		return r.writeJSON(resp.JSONData, pretty)
	}
	return r.writePlain("%s\n", resp.Body)
}
