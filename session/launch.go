package session

import (
	"context"
	"fmt"
	"path"

	"github.com/viant/stratus/model"
	"github.com/viant/stratus/translate"
	"github.com/viant/stratus/validate"
)

// Launch validates the session, prepares its remote output directory and
// submits count executions one after another. A submission failure stops
// the loop, checkpoints the executions already started and surfaces a
// LaunchError; re-launching on a fresh session is then safe.
func (s *Session) Launch(ctx context.Context, count int, overrides ...Option) (*LaunchReport, error) {
	if count <= 0 {
		count = 1
	}
	for _, override := range overrides {
		if err := override(s); err != nil {
			return nil, err
		}
	}
	if s.PipelineID() == "" {
		return nil, fmt.Errorf("session %v: no pipeline assigned", s.Name())
	}
	s.mux.RLock()
	bag := s.inputs
	s.mux.RUnlock()
	if bag == nil {
		return nil, fmt.Errorf("session %v: no inputs assigned", s.Name())
	}

	definition, err := s.definitions(ctx, s.PipelineID())
	if err != nil {
		return nil, fmt.Errorf("session %v: failed to fetch definition of %v: %w", s.Name(), s.PipelineID(), err)
	}
	report := &LaunchReport{}
	if report.Warnings, err = s.check(ctx, definition, bag); err != nil {
		return nil, fmt.Errorf("session %v: %w", s.Name(), err)
	}
	for _, warning := range report.Warnings {
		s.logger.Printf("[WARN] session %v: %v", s.Name(), warning)
	}

	if err = Mkdirs(ctx, s.storage, s.RemoteOutputDir()); err != nil {
		return nil, fmt.Errorf("session %v: %w", s.Name(), err)
	}

	s.mux.RLock()
	rendered, err := s.renderInputs(ctx, s.inputDomain)
	contentSession := s.contentStore != nil
	s.mux.RUnlock()
	if err != nil {
		return nil, fmt.Errorf("session %v: %w", s.Name(), err)
	}
	// A platform session points all executions at the shared output
	// directory; a content session gets a dedicated, timestamped results
	// folder per execution instead.
	if !contentSession {
		rendered[resultsDirectoryKey] = s.RemoteOutputDir()
	}

	for i := 0; i < count; i++ {
		location := s.RemoteOutputDir()
		outputPath := ""
		if contentSession {
			if outputPath, location, err = s.prepareResultsFolder(ctx); err != nil {
				return nil, fmt.Errorf("session %v: %w", s.Name(), err)
			}
		}
		id, err := s.service.Submit(ctx, s.PipelineID(), s.Name(), rendered, location)
		if err != nil {
			launchErr := &LaunchError{Session: s.Name(), Submitted: i, Requested: count, Err: err}
			if saveErr := s.Save(ctx); saveErr != nil {
				s.logger.Printf("[WARN] %v; the checkpoint also failed: %v", launchErr, saveErr)
			}
			return report, launchErr
		}
		record := &model.Workflow{Status: model.StatusRunning, OutputPath: outputPath}
		if execution, infoErr := s.service.Execution(ctx, id); infoErr == nil {
			record.Status = execution.Status
			record.Start = model.FormatStart(execution.StartDate)
		}
		s.mux.Lock()
		s.inventory[id] = record
		s.mux.Unlock()
		report.Submitted = append(report.Submitted, id)
	}
	if err = s.Save(ctx); err != nil {
		return report, err
	}
	return report, nil
}

// prepareResultsFolder creates a timestamped results folder for one
// execution under the session output directory and returns its path with
// the prefix:id reference handed to the platform.
func (s *Session) prepareResultsFolder(ctx context.Context) (string, string, error) {
	outputPath := path.Join(s.RemoteOutputDir(), s.clk.Now().Format("2006-01-02_15:04:05"))
	if err := Mkdirs(ctx, s.storage, outputPath); err != nil {
		return "", "", err
	}
	ref, err := s.contentStore.Resolve(ctx, outputPath)
	if err != nil {
		return "", "", fmt.Errorf("failed to resolve results folder %v: %w", outputPath, err)
	}
	return outputPath, s.refPrefixes[0] + ":" + ref.ID, nil
}

// check runs key and value validation against the pipeline definition,
// probing declared files where the session data actually lives.
func (s *Session) check(ctx context.Context, definition *model.Definition, bag map[string]interface{}) ([]string, error) {
	s.mux.RLock()
	translator := s.translator()
	stored := s.storedInputs
	location := "remote"
	allowance := []string{resultsDirectoryKey}
	if s.contentStore != nil {
		location = s.refPrefixes[0]
		allowance = nil
	}
	s.mux.RUnlock()
	checker := &validate.Checker{
		Definition: definition,
		Allowance:  allowance,
		Location:   location,
		Exists:     s.storage.Exists,
		Translate: func(value string) (string, error) {
			var parsed *translate.Value
			var err error
			if stored {
				parsed, err = translator.ParseStored(value)
			} else {
				parsed, err = translator.Parse(value)
			}
			if err != nil {
				return "", err
			}
			remote, err := translator.Render(ctx, parsed, translate.DomainRemote)
			if err != nil {
				return "", err
			}
			return remote.(string), nil
		},
	}
	warnings, err := checker.CheckKeys(bag)
	if err != nil {
		return nil, err
	}
	if err = checker.CheckValues(ctx, bag); err != nil {
		return nil, err
	}
	return warnings, nil
}
