// Package gen generates CQRS command and validator classes from a described
// entity model.
//
// For every selected entity a run produces five files: create, update and
// delete commands, and validators for create and update. Content blocks are
// built from the entity's properties and substituted into plain-text
// template documents.
//
// # Architecture
//
// The generation pipeline follows this flow:
//
//	SchemaProvider (snapshot file or live database)
//	        ↓
//	   Graph (selected entities as Type and Field)
//	        ↓
//	   Content (properties, assignments, rules, usings per artifact kind)
//	        ↓
//	   Template.Render
//	        ↓
//	   PathPlanner + Writer
//
// # Key Types
//
//   - Graph: the entities selected by the configuration, in provider order
//   - Type: one entity with its fields and primary key
//   - TypeResolver: turns model types into declaration strings and records
//     the namespaces they need
//   - ExclusionPolicy: property names omitted from create and update commands
//   - Template: a parsed template document with its placeholder tokens
//   - Generator: runs entities concurrently under a FailurePolicy
//
// # Selection
//
// An entity is generated when it is concrete, declared in
// Config.EntityNamespace and its direct base is Config.AuditableBase.
// Entities deriving from the marker through an intermediate base are not
// selected.
//
// # Usage
//
//	cfg, err := gen.NewConfig(
//		gen.WithTarget("SampleApp.Application/CQRS"),
//		gen.WithTemplateDir("templates"),
//		gen.WithEntityExclusions(gen.OpCreate, "TodoItem", "List"),
//	)
//	if err != nil {
//		return err
//	}
//	res, err := gen.Generate(ctx, cfg, load.NewFileProvider("schema.yaml"))
//
// # Errors
//
// Failures are reported with typed errors: SchemaError for model defects,
// ConfigError for configuration and missing templates, TemplateError for
// tokens without content, and GenerationError wrapping the failure of one
// entity. Each matches its sentinel with errors.Is.
package gen
