// Package mock provides test double implementations of AI service interfaces.
//
// This package contains mock implementations of ai.Annotator,
// ai.FrameClassifier and ai.AIProvider for use in unit tests. The mocks allow
// tests to run without an annotation backend and enable controlled,
// deterministic behavior.
//
// # Usage in Tests
//
//	annotator := mock.NewMockAnnotator().
//	    WithAnnotation("How do I restart the gateway?", &ai.Annotation{
//	        Entities: []string{"gateway"},
//	        Frames:   []string{"Activity_start"},
//	    })
//
//	// Custom behavior injection
//	annotator.AnnotateFunc = func(ctx context.Context, text string) (*ai.Annotation, error) {
//	    return nil, errors.New("backend down")
//	}
//
//	// Check call counts
//	count := annotator.CallCount()
//
// # Default Behavior
//
//   - MockAnnotator: Returns the scripted annotation for a text, or the
//     lowercased words of the text as entities
//   - MockFrameClassifier: Returns scripted frames per text, or none
//   - MockProvider: Aggregates a mock annotator and frame classifier
package mock
