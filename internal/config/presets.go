package config

import "sort"

// Defaults applied by the CLI when a manifest leaves a field empty.
const (
	DefaultTOCTitle        = "Table of Contents"
	DefaultReferencesTitle = "References & External Links"
	DefaultWorkdir         = "_pdfbook_build"
)

// presets are the built-in manifests, addressable by name.
var presets = map[string]func() *Manifest{
	"agentic": agenticPreset,
}

// Preset returns a fresh copy of the built-in manifest called name.
func Preset(name string) (*Manifest, bool) {
	build, ok := presets[name]
	if !ok {
		return nil, false
	}
	return build(), true
}

// PresetNames lists the built-in manifests in sorted order.
func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func agenticPreset() *Manifest {
	return &Manifest{
		Name:           "agentic",
		Title:          "Agentic Design Patterns",
		OutputFilename: "Agentic_Design_Patterns.pdf",
		Workdir:        "_agentic_build",
		Headings: []string{
			"Dedication",
			"Acknowledgment",
			"Foreword",
			"A Thought Leader's Perspective: Power and Responsibility",
			"Introduction",
			`What makes an AI system an "agent"?`,
			"Part One",
			"Chapter 1: Prompt Chaining",
			"Chapter 2: Routing",
			"Chapter 3: Parallelization",
			"Chapter 4: Reflection",
			"Chapter 5: Tool Use",
			"Chapter 6: Planning",
			"Chapter 7: Multi-Agent",
			"Part Two",
			"Chapter 8: Memory Management",
			"Chapter 9: Learning and Adaptation",
			"Chapter 10: Model Context Protocol (MCP)",
			"Chapter 11: Goal Setting and Monitoring",
			"Part Three",
			"Chapter 12: Exception Handling and Recovery",
			"Chapter 13: Human-in-the-Loop",
			"Chapter 14: Knowledge Retrieval (RAG)",
			"Part Four",
			"Chapter 15: Inter-Agent Communication (A2A)",
			"Chapter 16: Resource-Aware Optimization",
			"Chapter 17: Reasoning Techniques",
			"Chapter 18: Guardrails/Safety Patterns",
			"Chapter 19: Evaluation and Monitoring",
			"Chapter 20: Prioritization",
			"Chapter 21: Exploration and Discovery",
			"Appendix",
			"Appendix A: Advanced Prompting Techniques",
			"Appendix B - AI Agentic ....: From GUI to Real world environment",
			"Appendix C - Quick overview of Agentic Frameworks",
			"Appendix D - Building an Agent with AgentSpace (on-line only)",
			"Appendix E - AI Agents on the CLI (online)",
			"Appendix F - Under the Hood: An Inside Look at the Agents' Reasoning Engines",
			"Appendix G - Coding agents",
			"Conclusion",
			"Glossary",
			"Index of Terms",
		},
		SectionHeadings: []string{"Part One", "Part Two", "Part Three", "Part Four", "Appendix"},
	}
}
