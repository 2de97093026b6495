package profile

// Default returns the built-in portfolio corpus.
//
// Content lives in code rather than a datastore on purpose: it changes with
// the same cadence as the site itself, and keeping it typed means the
// chunker can never drift from the schema.
func Default() Profile {
	return Profile{
		Personal: Personal{
			Name:     "Amari West",
			Headline: "Full-stack engineer focused on applied AI and accessibility",
			Bio: "I'm Amari, a software engineer who builds products at the intersection of " +
				"machine learning and human needs. Over the last six years I've shipped " +
				"computer-vision tooling, retrieval systems, and the boring-but-critical " +
				"infrastructure that keeps them running. I care most about products that " +
				"widen access: assistive tech, plain-language interfaces, fast sites on slow networks.",
			Skills: []SkillCategory{
				{Name: "Languages", Skills: []string{"Go", "Python", "TypeScript", "SQL"}},
				{Name: "AI/ML", Skills: []string{"retrieval-augmented generation", "embeddings", "computer vision", "model evaluation", "prompt design"}},
				{Name: "Backend", Skills: []string{"PostgreSQL", "pgvector", "gRPC", "REST API design", "streaming pipelines"}},
				{Name: "Frontend", Skills: []string{"React", "Next.js", "accessibility (WCAG)", "design systems"}},
			},
			StoryBeats: []string{
				"Started as a self-taught programmer fixing point-of-sale terminals in my family's shop, which taught me that software fails at the edges first.",
				"Moved into computer vision after volunteering at a low-vision support center and seeing how little of the assistive market actually worked.",
				"Now I split my time between applied AI consulting and building EchoLens, with a long-term goal of making visual content natively accessible.",
			},
			Philosophy: "Ship the smallest thing that genuinely helps someone, instrument it honestly, " +
				"and let real usage—not roadmap theater—decide what gets built next.",
			Interests: []string{"trail running", "film photography", "mechanical keyboards", "teaching intro programming at the community center"},
			FAQs: []FAQ{
				{
					Question: "Are you available for freelance or contract work?",
					Answer:   "Yes, I take on a small number of consulting engagements per year, usually around applied AI or accessibility audits. The fastest way to start is to book a call.",
				},
				{
					Question: "What kind of roles are you interested in?",
					Answer:   "Senior or staff engineering roles where AI capability meets real product constraints — retrieval systems, assistive technology, or developer infrastructure for ML teams.",
				},
				{
					Question: "Do you mentor?",
					Answer:   "I mentor two early-career engineers at a time through a local nonprofit. The queue is long but I always answer thoughtful questions by email.",
				},
			},
			WorkStyle: []string{
				"Async-first communicator: written design docs before meetings, meetings only for decisions.",
				"Prototype in days, production-harden in weeks; I keep the two phases explicitly separate.",
				"Strong preference for small teams with end-to-end ownership over large feature factories.",
			},
			ContactURL:  "mailto:hello@amariwest.dev",
			CalendarURL: "https://cal.com/amariwest/intro",
		},
		Projects: []Project{
			{
				ID:       "project-1",
				Title:    "Relay: Realtime Ops Copilot",
				Year:     "2024",
				Category: "AI Infrastructure",
				Tags:     []string{"rag", "golang", "streaming", "postgres"},
				Summary: "An incident-response copilot that watches alert streams, retrieves matching " +
					"runbook passages, and drafts first-response actions for on-call engineers.",
				Problem: "On-call engineers at mid-size companies waste the first fifteen minutes of " +
					"every incident hunting for the right runbook, and tribal knowledge lives in old Slack threads.",
				Approach: "Indexed runbooks, postmortems, and resolved-incident transcripts into a " +
					"pgvector store; alerts trigger retrieval and a grounded summary with linked sources, " +
					"streamed into the incident channel within seconds of the page.",
				Impact: "Pilot teams cut median time-to-first-action from 14 minutes to under 4, and " +
					"new on-call hires stopped escalating routine pages.",
				Metrics: []string{"median time-to-first-action down 71%", "38% fewer unnecessary escalations", "9 teams onboarded in pilot"},
				Tech:    []string{"Go", "PostgreSQL", "pgvector", "OpenAI embeddings", "Server-sent streaming"},
				Role:    "Sole engineer: designed the retrieval pipeline, wrote the Go services, ran the pilot.",
			},
			{
				ID:       "project-2",
				Title:    "Ledgerline: Plain-language Billing",
				Year:     "2023",
				Category: "Fintech",
				Tags:     []string{"typescript", "nlp", "fintech"},
				Summary: "A billing explanation layer that rewrites utility invoices into plain language " +
					"and flags anomalous charges before customers call support.",
				Problem: "Utility bills are effectively unreadable; the top driver of support call volume " +
					"was customers asking what a line item meant.",
				Approach: "Built a typed invoice parser, a rules-plus-LLM explanation engine with strict " +
					"templating so numbers are never hallucinated, and an anomaly detector over twelve months of history.",
				Impact:  "The partner utility saw billing-related support calls drop by a quarter in three months.",
				Metrics: []string{"26% reduction in billing support calls", "claims of incorrect bills down 18%"},
				Tech:    []string{"TypeScript", "Node.js", "PostgreSQL", "LLM templating"},
				Role:    "Tech lead of a three-person team; owned the explanation engine and numeric-safety guarantees.",
			},
			{
				ID:       "project-3",
				Title:    "EchoLens: Brought Images to Life for the Visually Impaired",
				Year:     "2022",
				Category: "Accessibility",
				Tags:     []string{"computer-vision", "accessibility", "mobile"},
				Summary: "A mobile app that narrates photographs for blind and low-vision users: not just " +
					"object lists, but spatial, contextual descriptions of what matters in the frame.",
				Problem: "Screen readers announce 'image' and stop. Automatic alt text names objects " +
					"without relationships, which is useless for understanding a family photo or a whiteboard.",
				Approach: "Combined a scene-graph vision model with a description planner that orders details " +
					"the way a sighted friend would: who, what they're doing, where, then notable detail. " +
					"Descriptions stream as audio with adjustable verbosity, and everything runs with a privacy-first, on-device-when-possible policy.",
				Impact: "Adopted by two low-vision support organizations for member training; users report " +
					"finally being able to sort their own photo libraries independently.",
				Metrics: []string{"4.8 average App Store rating", "12k monthly active users", "featured by a national blindness association newsletter"},
				Tech:    []string{"Python", "PyTorch", "scene-graph models", "Swift", "on-device inference"},
				Role:    "Founder and primary engineer; built the vision pipeline and description planner.",
			},
		},
		Experiences: []Experience{
			{
				ID:      "experience-1",
				Company: "Northbeam Systems",
				Title:   "Staff Software Engineer",
				Period:  "2021 – present",
				Year:    "2021",
				Summary: "Lead engineer for the retrieval platform powering internal search and customer-facing AI answers.",
				Highlights: []string{
					"Designed the embedding ingestion pipeline that indexes 40M documents nightly with idempotent upserts.",
					"Cut answer latency p95 from 3.2s to 900ms by restructuring retrieval to overlap embedding and candidate fetch.",
					"Introduced grounded-citation requirements for every AI answer surface, which became company policy.",
				},
				Technologies: []string{"Go", "PostgreSQL", "pgvector", "Kafka", "OpenAI APIs"},
			},
			{
				ID:      "experience-2",
				Company: "Brightpath Labs",
				Title:   "Senior Software Engineer",
				Period:  "2019 – 2021",
				Year:    "2019",
				Summary: "Built computer-vision services for retail analytics with a four-person ML team.",
				Highlights: []string{
					"Shipped a shelf-monitoring model pipeline that survived store lighting conditions no benchmark covered.",
					"Wrote the team's model-evaluation harness, later open-sourced and adopted by three partner teams.",
				},
				Technologies: []string{"Python", "PyTorch", "TensorRT", "GCP"},
			},
		},
		Education: []Education{
			{
				ID:          "education-1",
				School:      "University of Washington",
				Degree:      "B.S. Computer Science",
				Year:        "2018",
				Coursework:  []string{"machine learning", "distributed systems", "human-computer interaction", "databases"},
				Achievement: "Graduated with honors; senior thesis on audio interfaces for non-visual photo browsing.",
				Projects:    "Capstone: a campus-navigation app for low-vision students using BLE beacons, deployed in two buildings.",
			},
		},
	}
}
