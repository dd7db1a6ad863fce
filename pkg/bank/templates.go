package bank

import "fmt"

// defaultTemplates is the built-in default content per file type,
// consumed during repair-on-read creation.
var defaultTemplates = map[FileType]string{
	FileTypeProjectBrief: `---
type: projectBrief
title: Project Brief
tags: [core]
---

# Project Brief

## Overview

## Goals

## Constraints
`,
	FileTypeProductContext: `---
type: productContext
title: Product Context
tags: [core]
---

# Product Context

## Problem Statement

## User Experience Goals
`,
	FileTypeActiveContext: `---
type: activeContext
title: Active Context
tags: [core]
---

# Active Context

## Current Focus

## Recent Changes

## Next Steps
`,
	FileTypeSystemPatterns: `---
type: systemPatterns
title: System Patterns
tags: [core, arch]
---

# System Patterns

## Architecture

## Design Decisions
`,
	FileTypeTechContext: `---
type: techContext
title: Tech Context
tags: [core]
---

# Tech Context

## Technologies

## Development Setup
`,
	FileTypeProgressCurrent: `---
type: progressCurrent
title: Current Progress
tags: [progress]
---

# Current Progress

## In Flight

## Blocked
`,
	FileTypeProgressHistory: `---
type: progressHistory
title: Progress History
tags: [progress]
---

# Progress History
`,
}

// TemplateSet maps each known file type to its default content. The
// mapping is validated at construction: every known type must have a
// template and no unknown types are accepted.
type TemplateSet struct {
	templates map[FileType]string
}

// NewTemplateSet returns the built-in default templates.
func NewTemplateSet() *TemplateSet {
	templates := make(map[FileType]string, len(defaultTemplates))
	for t, content := range defaultTemplates {
		templates[t] = content
	}
	return &TemplateSet{templates: templates}
}

// NewTemplateSetFrom builds a template set from caller-supplied content,
// falling back to the built-in defaults for types not overridden.
func NewTemplateSetFrom(overrides map[FileType]string) (*TemplateSet, error) {
	set := NewTemplateSet()
	for t, content := range overrides {
		if !t.Valid() {
			return nil, opError(CodeUnknownFileType, "templates", string(t), fmt.Errorf("template for unknown file type: %q", t))
		}
		if content == "" {
			return nil, opError(CodeInvalidArgument, "templates", string(t), fmt.Errorf("template content cannot be empty"))
		}
		set.templates[t] = content
	}
	return set, nil
}

// Content returns the template for a file type.
func (s *TemplateSet) Content(t FileType) (string, bool) {
	content, ok := s.templates[t]
	return content, ok
}
