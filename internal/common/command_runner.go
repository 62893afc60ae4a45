package common

import (
	"context"
	"fmt"

	"atscore/internal/errors"
)

// CreateInputFunc builds the operation input from the command arguments.
type CreateInputFunc[Input any] func(args []string) (Input, error)

// LogDetailsFunc defines how to log the start of an operation.
type LogDetailsFunc[Input any] func(input Input, cfg CommandConfig)

// OperationFunc runs the command's work.
type OperationFunc[Input, Output any] func(context.Context, Input) (Output, error)

// RunCommand encapsulates the common logic of file-based CLI commands:
// build the input, run the operation, then format and write the result.
func RunCommand[Input, Output any](
	ctx context.Context,
	logger *errors.Logger,
	cmdConfig CommandConfig,
	args []string,
	createInput CreateInputFunc[Input],
	operation OperationFunc[Input, Output],
	logDetails LogDetailsFunc[Input],
) error {
	outputHandler := NewOutputHandler(logger)

	input, err := createInput(args)
	if err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}

	if logDetails != nil {
		logDetails(input, cmdConfig)
	}

	result, err := operation(ctx, input)
	if err != nil {
		return err
	}

	return outputHandler.HandleOutput(result, cmdConfig)
}
