package templating

import (
	"io/fs"
	"os"

	"github.com/yegors/wmo-decoder/internal/wxcode"
	"github.com/yegors/wmo-decoder/pkg/logger"
)

// WMOReferenceURL is the code table the instruction points the model at
const WMOReferenceURL = "https://codes.wmo.int/49-2/_AerodromePresentOrForecastWeather"

// LabelSet names the reply labels as they appear in the output template
type LabelSet struct {
	Code, NumericCode, Name, NameAr, Description, DescriptionAr string
}

// InstructionData is the data passed to the system instruction template
type InstructionData struct {
	ReferenceURL  string
	NotApplicable string
	Labels        LabelSet
}

// PromptData is the data passed to the user prompt template
type PromptData struct {
	Query string
}

// Service renders the fixed instruction and the per-query prompt
type Service struct {
	engine *Engine
	logger *logger.Logger
}

// NewService creates a templating service. An empty dir uses the embedded templates.
func NewService(dir string, logger *logger.Logger) *Service {
	var source fs.FS
	if dir != "" {
		source = os.DirFS(dir)
	}
	return &Service{
		engine: NewEngine(source, logger),
		logger: logger.Named("templating-service"),
	}
}

// RenderInstruction renders the system instruction
func (s *Service) RenderInstruction() (string, error) {
	return s.engine.Render(InstructionTemplate, InstructionData{
		ReferenceURL:  WMOReferenceURL,
		NotApplicable: wxcode.NotApplicable,
		Labels: LabelSet{
			Code:          wxcode.LabelCode,
			NumericCode:   wxcode.LabelNumericCode,
			Name:          wxcode.LabelName,
			NameAr:        wxcode.LabelNameAr,
			Description:   wxcode.LabelDescription,
			DescriptionAr: wxcode.LabelDescriptionAr,
		},
	})
}

// RenderPrompt embeds the user's query in the one-line prompt
func (s *Service) RenderPrompt(query string) (string, error) {
	return s.engine.Render(PromptTemplate, PromptData{Query: query})
}

// ClearCache forces templates to be re-read on next use
func (s *Service) ClearCache() {
	s.engine.ClearCache()
}
