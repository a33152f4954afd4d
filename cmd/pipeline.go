package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/runanywhere/nativeaudio/internal/service"
)

// executePipeline runs the steps that follow startStep in --pipeline,
// passing along the path of the last recording.
func executePipeline(svc service.Service, path string, startStep rune) error {
	if pipeline == "" {
		return nil
	}

	steps := []rune(strings.ToLower(pipeline))

	startIndex := -1
	for i, step := range steps {
		if step == startStep {
			startIndex = i
			break
		}
	}

	if startIndex == -1 {
		return fmt.Errorf("step '%c' not found in pipeline '%s'", startStep, pipeline)
	}

	_, err := runSteps(svc, steps[startIndex+1:], path)
	return err
}

// runSteps executes pipeline steps in order and returns the last recording.
func runSteps(svc service.Service, steps []rune, path string) (string, error) {
	for i, step := range steps {
		fmt.Printf("Pipeline: executing step %d/%d: '%c'...\n", i+1, len(steps), step)

		switch step {
		case 'r':
			if _, err := svc.StartRecording(); err != nil {
				return path, fmt.Errorf("pipeline record failed: %w", err)
			}

			fmt.Println("Pipeline: recording - Press Enter to stop...")
			scanner := bufio.NewScanner(os.Stdin)
			scanner.Scan()

			result, err := svc.StopRecording()
			if err != nil {
				return path, fmt.Errorf("pipeline record stop failed: %w", err)
			}
			printRecording(result)
			path = result.Path

		case 'p':
			if path == "" {
				return path, fmt.Errorf("pipeline play needs a recording, add 'r' before 'p'")
			}
			if err := playToEnd(svc, path); err != nil {
				return path, fmt.Errorf("pipeline play failed: %w", err)
			}
			fmt.Println("Pipeline: playback completed")

		default:
			return path, fmt.Errorf("unknown pipeline step: '%c' (valid: r=record, p=play)", step)
		}
	}

	return path, nil
}

func validatePipeline() error {
	if pipeline == "" {
		return nil
	}

	validSteps := map[rune]bool{
		'r': true, // record
		'p': true, // play
	}

	steps := []rune(strings.ToLower(pipeline))
	for _, step := range steps {
		if !validSteps[step] {
			return fmt.Errorf("invalid pipeline step: '%c' (valid: r=record, p=play)", step)
		}
	}

	return nil
}
