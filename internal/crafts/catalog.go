// SPDX-License-Identifier: AGPL-3.0
// Copyright 2025 Kadir Pekel
//
// Licensed under the GNU Affero General Public License v3.0 (AGPL-3.0) (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.gnu.org/licenses/agpl-3.0.en.html
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package crafts declares the toddleops agent catalog and the namespaces
// that materialize it.
//
// Archetypes are plain declarations. Nothing here builds an agent or opens a
// connection; that happens lazily when a namespace path is first resolved.
package crafts

import (
	"slices"

	"github.com/kadirpekel/toddleops/pkg/archetype"
	"github.com/kadirpekel/toddleops/pkg/instruction"
)

// Default model identifiers.
const (
	DefaultModel = "gemini-2.5-flash-lite"
	RootModel    = "ollama_chat/mistral-nemo:12b"
)

// Data bag keys shared by the pipeline stages.
const (
	KeyArtResearch     = "art_research"
	KeyScienceResearch = "science_research"
	KeySillyResearch   = "silly_research"
	KeyStandardProject = "standard_project"
	KeySafetyReport    = "safety_report"
	KeyHumanProject    = "human_project"
	KeyFinalProject    = "final_project"
	KeyDatabaseQueue   = "database_queue"
)

// Tool paths.
const (
	ToolGoogleSearch  = "toddleops.tools.google_search"
	ToolPreloadMemory = "toddleops.tools.preload_memory"
	ToolExitLoop      = "toddleops.tools.exit_loop"
	ToolFindProjects  = "toddleops.tools.find_projects"
	ToolSQLiteServer  = "toddleops.mcp.sqlite.mcp_sqlite_server"
)

// Agent paths.
const (
	PathArtResearcher        = "toddleops.agents.research.art_craft_researcher"
	PathScienceResearcher    = "toddleops.agents.research.science_craft_researcher"
	PathSillyResearcher      = "toddleops.agents.research.silly_craft_researcher"
	PathResearchTeam         = "toddleops.agents.research.project_researcher"
	PathProjectResearcher    = "toddleops.agents.craft_research.project_researcher"
	PathProjectSynthesizer   = "toddleops.agents.craft_research.project_synthesizer"
	PathCraftResearch        = "toddleops.agents.craft_research.root_agent"
	PathSafetyCritic         = "toddleops.agents.quality_assurance.safety_critic"
	PathSafetyRefiner        = "toddleops.agents.quality_assurance.safety_refiner"
	PathSafetyRefinementLoop = "toddleops.agents.quality_assurance.safety_refinement_loop"
	PathEditorialAgent       = "toddleops.agents.quality_assurance.editorial_agent"
	PathQualityAssurance     = "toddleops.agents.quality_assurance.root_agent"
	PathProjectFormatter     = "toddleops.agents.formatter.project_formatter"
	PathProjectDatabase      = "toddleops.agents.database.project_database_agent"
	PathProjectPipeline      = "toddleops.agents.root.project_pipeline"
	PathRootAgent            = "toddleops.agents.root.root_agent"
)

var researcherRules = []string{
	"You WILL ONLY provide one project.",
	"You MUST use google search to find the most relevant and safe toddler projects.",
	"Be sure to include at least the following: the project name, duration of project, required materials for project, step by step instructions.",
	"Projects MUST be age appropriate for toddlers aged 1-3 years. If the request is outside of this scope, please politely decline and prompt the user to provide a different request.",
}

func researcherInstruction(flavor string) string {
	return instruction.Instructions{
		Persona: "Toddler Project Researcher",
		Objectives: []string{
			"Research popular and safe " + flavor + " for toddlers that are easy to do at home with common household materials.",
			"Return detailed step-by-step instructions of the activity for parents and caregivers and a bulleted material list.",
		},
		Principles:   researcherRules,
		Constraints:  []string{},
		IncomingKeys: []string{},
	}.MustFormat()
}

func researcher(name, flavor, outputKey string) *archetype.Worker {
	return archetype.MustWorker(archetype.WorkerConfig{
		Spec: archetype.Spec{
			Name:         name,
			Summary:      "Researches " + flavor + " for toddlers using common household materials.",
			Instruction:  researcherInstruction(flavor),
			Model:        DefaultModel,
			OutputKey:    outputKey,
			DefaultTools: []string{ToolGoogleSearch},
		},
		Capability: "research",
		Produces:   []string{outputKey},
	})
}

// Workers.
var (
	ArtCraftResearcher     = researcher("ArtCraftResearcher", "art crafts and projects", KeyArtResearch)
	ScienceCraftResearcher = researcher("ScienceCraftResearcher", "science-related crafts or projects", KeyScienceResearch)
	SillyCraftResearcher   = researcher("SillyCraftResearcher", "silly crafts or projects", KeySillyResearch)

	ProjectSynthesizer = archetype.MustWorker(archetype.WorkerConfig{
		Spec: archetype.Spec{
			Name:    "ProjectSynthesizer",
			Summary: "Synthesizes a single toddler project from research output.",
			Instruction: instruction.Instructions{
				Persona: "Project Synthesizer",
				Objectives: []string{
					"Analyze research output from the Project Researchers and create a single, sensible toddler project.",
				},
				Principles: []string{
					"You can either pick the best parts from the project from the provided research, or combine elements to create a new project.",
					"Your output MUST be a `StandardProject` object.",
					"If the research outputs conflict, use your best judgement to create a safe and engaging project for toddlers aged 1-3 years.",
					"Projects MUST be age appropriate for toddlers aged 1-3 years.",
					"If the request is outside of this scope, provide a standard_project instance with the name 'out of scope' and empty strings for everything else.",
				},
				Constraints:  []string{},
				IncomingKeys: []string{KeyArtResearch, KeyScienceResearch, KeySillyResearch},
			}.MustFormat(),
			Model:     DefaultModel,
			OutputKey: KeyStandardProject,
		},
		Capability:     "synthesis",
		AcceptedInputs: []string{KeyArtResearch, KeyScienceResearch, KeySillyResearch},
		Produces:       []string{KeyStandardProject},
	})

	SafetyCritic = archetype.MustWorker(archetype.WorkerConfig{
		Spec: archetype.Spec{
			Name:    "SafetyCritic",
			Summary: "Assesses the safety of a toddler project.",
			Instruction: `You are an expert at assessing toddler safety.

You will assess the safety of the following proposed toddler project:

**Project:** {standard_project}

Provide your findings in a concise summary (100 words max) and end with
APPROVE if the project is safe for toddlers aged 1-3 years, or REJECT with
the specific changes required.`,
			Model:     DefaultModel,
			OutputKey: KeySafetyReport,
		},
		Capability:     "safety",
		AcceptedInputs: []string{KeyStandardProject},
		Produces:       []string{KeySafetyReport},
	})

	SafetyRefiner = archetype.MustWorker(archetype.WorkerConfig{
		Spec: archetype.Spec{
			Name:    "SafetyRefiner",
			Summary: "Applies safety feedback to a toddler project.",
			Instruction: `You refine toddler projects for safety.

**Project:** {standard_project}

**Safety Report:** {safety_report}

If the safety report says APPROVE, call the exit_loop tool and do nothing else.
Otherwise rewrite the project to address every concern in the report and
output it as a JSON object with the fields name, description,
duration_minutes, materials and instructions.`,
			Model:        DefaultModel,
			OutputKey:    KeyStandardProject,
			DefaultTools: []string{ToolExitLoop},
		},
		Capability:     "safety",
		AcceptedInputs: []string{KeyStandardProject, KeySafetyReport},
		Produces:       []string{KeyStandardProject},
	})

	EditorialAgent = archetype.MustWorker(archetype.WorkerConfig{
		Spec: archetype.Spec{
			Name:    "EditorialAgent",
			Summary: "Polishes instructions and wording after safety approval.",
			Instruction: `You are an expert editor.

Review the following project for clarity, spelling and grammar. Make sure the
instructions are easy to understand for a parent or caregiver. Keep the
materials and duration unless they are unclear.

**Project:** {standard_project}

Output the edited project as a JSON object with the fields name,
description, duration_minutes, materials and instructions.`,
			Model:     DefaultModel,
			OutputKey: KeyStandardProject,
		},
		Capability:     "editing",
		AcceptedInputs: []string{KeyStandardProject},
		Produces:       []string{KeyStandardProject},
	})

	ProjectFormatter = archetype.MustWorker(archetype.WorkerConfig{
		Spec: archetype.Spec{
			Name:    "ProjectFormatter",
			Summary: "Formats a StandardProject into reader-friendly markdown.",
			Instruction: `You format a StandardProject into a concise markdown handout with sections
for name, description, duration, materials, and instructions.

**Project:** {standard_project}`,
			Model:     DefaultModel,
			OutputKey: KeyHumanProject,
		},
		Capability:     "formatting",
		AcceptedInputs: []string{KeyStandardProject},
		Produces:       []string{KeyHumanProject},
	})

	ProjectDatabaseAgent = archetype.MustWorker(archetype.WorkerConfig{
		Spec: archetype.Spec{
			Name:    "ProjectDatabaseAgent",
			Summary: "Stores finalized projects in the project database via MCP.",
			Instruction: `You save a finalized toddler project to the project database using the
sqlite MCP server tools. Always ask for permission before modifying the
database.

**Project:** {final_project?}`,
			Model:     DefaultModel,
			OutputKey: KeyDatabaseQueue,
		},
		Capability:     "persistence",
		AcceptedInputs: []string{KeyFinalProject},
		Produces:       []string{KeyDatabaseQueue},
		HelperTools:    []string{ToolSQLiteServer},
	})
)

// Orchestrators.
var (
	CraftResearchTeam = archetype.MustOrchestrator(archetype.OrchestratorConfig{
		Spec: archetype.Spec{
			Name:        "CraftResearchTeam",
			Summary:     "Runs the art, science and silly researchers side by side.",
			Instruction: "Research toddler crafts from three angles at once.",
			Model:       DefaultModel,
		},
		Style: archetype.Parallel,
		ManagedAgents: []archetype.ToolSpec{
			{Handle: "art_craft_researcher", AgentPath: PathArtResearcher, Summary: "Research art crafts.", OutputKeys: []string{KeyArtResearch}},
			{Handle: "science_craft_researcher", AgentPath: PathScienceResearcher, Summary: "Research science crafts.", OutputKeys: []string{KeyScienceResearch}},
			{Handle: "silly_craft_researcher", AgentPath: PathSillyResearcher, Summary: "Research silly crafts.", OutputKeys: []string{KeySillyResearch}},
		},
	})

	CraftResearchPipeline = archetype.MustOrchestrator(archetype.OrchestratorConfig{
		Spec: archetype.Spec{
			Name:    "CraftResearchPipeline",
			Summary: "Researches toddler-safe crafts and synthesizes a StandardProject.",
			Instruction: `Research a toddler-safe craft with google search, then synthesize a single
StandardProject from the findings.`,
			Model: DefaultModel,
		},
		Style: archetype.Sequential,
		ManagedAgents: []archetype.ToolSpec{
			{
				Handle:     "project_researcher",
				AgentPath:  PathProjectResearcher,
				Summary:    "Use Google search to gather candidate toddler crafts.",
				OutputKeys: []string{KeyArtResearch, KeyScienceResearch, KeySillyResearch},
			},
			{
				Handle:     "project_synthesizer",
				AgentPath:  PathProjectSynthesizer,
				Summary:    "Turn research notes into a structured StandardProject.",
				InputKeys:  []string{KeyArtResearch, KeyScienceResearch, KeySillyResearch},
				OutputKeys: []string{KeyStandardProject},
			},
		},
	})

	SafetyRefinementLoop = archetype.MustOrchestrator(archetype.OrchestratorConfig{
		Spec: archetype.Spec{
			Name:        "SafetyRefinementLoop",
			Summary:     "Critiques and refines a project until it is safety-approved.",
			Instruction: "Critique the project for toddler safety and refine it until approved.",
			Model:       DefaultModel,
		},
		Style: archetype.Loop,
		ManagedAgents: []archetype.ToolSpec{
			{
				Handle:     "safety_critic",
				AgentPath:  PathSafetyCritic,
				Summary:    "Write a safety report ending in APPROVE or REJECT.",
				InputKeys:  []string{KeyStandardProject},
				OutputKeys: []string{KeySafetyReport},
			},
			{
				Handle:     "safety_refiner",
				AgentPath:  PathSafetyRefiner,
				Summary:    "Apply the safety report or approve the project.",
				InputKeys:  []string{KeyStandardProject, KeySafetyReport},
				OutputKeys: []string{KeyStandardProject},
			},
		},
	})

	QualityAssurancePipeline = archetype.MustOrchestrator(archetype.OrchestratorConfig{
		Spec: archetype.Spec{
			Name:    "QualityAssurancePipeline",
			Summary: "Runs safety refinement loop then editorial polish for projects.",
			Instruction: `Iteratively critique toddler project safety, refine until approved, then
edit for clarity and correctness.`,
			Model: DefaultModel,
		},
		Style: archetype.Sequential,
		ManagedAgents: []archetype.ToolSpec{
			{
				Handle:     "safety_refinement_loop",
				AgentPath:  PathSafetyRefinementLoop,
				Summary:    "Loop until the project is safety-approved.",
				InputKeys:  []string{KeyStandardProject},
				OutputKeys: []string{KeyStandardProject, KeySafetyReport},
			},
			{
				Handle:     "editorial_agent",
				AgentPath:  PathEditorialAgent,
				Summary:    "Polish instructions and wording after safety approval.",
				InputKeys:  []string{KeyStandardProject},
				OutputKeys: []string{KeyStandardProject},
			},
		},
	})

	ToddleOpsSequence = archetype.MustOrchestrator(archetype.OrchestratorConfig{
		Spec: archetype.Spec{
			Name:    "ToddleOpsSequence",
			Summary: "Full pipeline: research, safety/QA, then formatting for humans.",
			Instruction: `Generate a project via research, refine for safety, and format for a
caregiver-readable handout.`,
			Model: DefaultModel,
		},
		Style: archetype.Sequential,
		ManagedAgents: []archetype.ToolSpec{
			{
				Handle:     "craft_research",
				AgentPath:  PathCraftResearch,
				Summary:    "Find and synthesize a draft StandardProject.",
				OutputKeys: []string{KeyStandardProject},
			},
			{
				Handle:     "quality_assurance",
				AgentPath:  PathQualityAssurance,
				Summary:    "Refine project for safety and clarity.",
				InputKeys:  []string{KeyStandardProject},
				OutputKeys: []string{KeyStandardProject},
			},
			{
				Handle:     "project_formatter",
				AgentPath:  PathProjectFormatter,
				Summary:    "Format the final project into markdown output.",
				InputKeys:  []string{KeyStandardProject},
				OutputKeys: []string{KeyHumanProject},
			},
		},
	})

	ToddleOpsRoot = archetype.MustOrchestrator(archetype.OrchestratorConfig{
		Spec: archetype.Spec{
			Name:    "ToddleOpsRoot",
			Summary: "Entry-point orchestrator that delegates to the full pipeline.",
			Instruction: `Use the project_pipeline tool to satisfy user project requests. Do not
attempt to author the project yourself.`,
			Model:        RootModel,
			OutputKey:    KeyHumanProject,
			DefaultTools: []string{ToolPreloadMemory},
		},
		Style: archetype.Sequential,
		ManagedAgents: []archetype.ToolSpec{
			{
				Handle:     "project_pipeline",
				AgentPath:  PathProjectPipeline,
				Summary:    "Run the end-to-end project generation pipeline.",
				OutputKeys: []string{KeyStandardProject, KeyHumanProject},
			},
		},
	})
)

var catalog = []archetype.Archetype{
	ArtCraftResearcher,
	ScienceCraftResearcher,
	SillyCraftResearcher,
	ProjectSynthesizer,
	SafetyCritic,
	SafetyRefiner,
	EditorialAgent,
	ProjectFormatter,
	ProjectDatabaseAgent,
	CraftResearchTeam,
	CraftResearchPipeline,
	SafetyRefinementLoop,
	QualityAssurancePipeline,
	ToddleOpsSequence,
	ToddleOpsRoot,
}

var paths = map[string]string{
	ArtCraftResearcher.Name():       PathArtResearcher,
	ScienceCraftResearcher.Name():   PathScienceResearcher,
	SillyCraftResearcher.Name():     PathSillyResearcher,
	ProjectSynthesizer.Name():       PathProjectSynthesizer,
	SafetyCritic.Name():             PathSafetyCritic,
	SafetyRefiner.Name():            PathSafetyRefiner,
	EditorialAgent.Name():           PathEditorialAgent,
	ProjectFormatter.Name():         PathProjectFormatter,
	ProjectDatabaseAgent.Name():     PathProjectDatabase,
	CraftResearchTeam.Name():        PathResearchTeam,
	CraftResearchPipeline.Name():    PathCraftResearch,
	SafetyRefinementLoop.Name():     PathSafetyRefinementLoop,
	QualityAssurancePipeline.Name(): PathQualityAssurance,
	ToddleOpsSequence.Name():        PathProjectPipeline,
	ToddleOpsRoot.Name():            PathRootAgent,
}

// Catalog lists every archetype, workers first.
func Catalog() []archetype.Archetype {
	return slices.Clone(catalog)
}

// Lookup finds an archetype by name.
func Lookup(name string) (archetype.Archetype, bool) {
	i := slices.IndexFunc(catalog, func(a archetype.Archetype) bool { return a.Name() == name })
	if i < 0 {
		return nil, false
	}
	return catalog[i], true
}

// Path returns the namespace path an archetype is materialized under.
func Path(name string) (string, bool) {
	p, ok := paths[name]
	return p, ok
}
