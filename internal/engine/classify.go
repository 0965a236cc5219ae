package engine

import (
	"errors"

	"github.com/Rana718/datagen/internal/export"
	"github.com/Rana718/datagen/internal/materializer"
	"github.com/Rana718/datagen/internal/presets"
	"github.com/Rana718/datagen/internal/registry"
	"github.com/Rana718/datagen/internal/resolver"
	"github.com/Rana718/datagen/internal/schema"
)

// Category groups errors by what the caller has to do about them.
type Category string

const (
	CategorySchema     Category = "schema"
	CategoryGeneration Category = "generation"
	CategoryReference  Category = "reference"
	CategorySink       Category = "sink"
)

// Classify maps an error from any pipeline stage to its category. Errors
// that match nothing more specific are storage or I/O failures and count as
// sink errors.
func Classify(err error) Category {
	var (
		schemaErr   *schema.SchemaError
		rowsErr     *materializer.InvalidRowCountError
		cycleErr    *CircularDependencyError
		unknownGen  *registry.UnknownGeneratorError
		badParam    *registry.InvalidParameterError
		presetErr   *presets.UnknownPresetError
		presetField *presets.UnknownFieldError
		formatErr   *export.UnsupportedFormatError
		genErr      *materializer.GenerationError
		emptyRef    *resolver.EmptyReferenceTableError
		missingRef  *resolver.ReferenceNotFoundError
	)

	switch {
	case errors.As(err, &schemaErr), errors.As(err, &rowsErr), errors.As(err, &cycleErr),
		errors.As(err, &unknownGen), errors.As(err, &badParam),
		errors.As(err, &presetErr), errors.As(err, &presetField), errors.As(err, &formatErr):
		return CategorySchema
	case errors.As(err, &genErr):
		return CategoryGeneration
	case errors.As(err, &emptyRef), errors.As(err, &missingRef):
		return CategoryReference
	default:
		return CategorySink
	}
}
