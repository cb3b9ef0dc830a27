package resume

// SampleContent 返回演示用的完整简历内容。
func SampleContent() Content {
	return Content{
		PersonalInfo: PersonalInfo{
			FullName: "Alex Johnson",
			Email:    "alex.johnson@example.com",
			Phone:    "+1-555-0123",
			Address:  "San Francisco, CA",
			LinkedIn: "linkedin.com/in/alexjohnson",
		},
		Summary: "Experienced full-stack developer with 5+ years of expertise in React, Node.js, and cloud technologies. Passionate about building scalable web applications and leading development teams.",
		Experience: []Experience{
			{
				Company:     "TechStart Inc.",
				Position:    "Senior Full Stack Developer",
				StartDate:   "2022-03",
				EndDate:     PresentMarker,
				Description: "• Led development of customer-facing web applications using React and Node.js\n• Implemented CI/CD pipelines reducing deployment time by 60%\n• Mentored junior developers and conducted code reviews",
			},
		},
		Education: []Education{
			{
				Institution: "University of California, Berkeley",
				Degree:      "Bachelor of Science in Computer Science",
				StartDate:   "2016-09",
				EndDate:     "2020-05",
				GPA:         "3.8",
			},
		},
		Skills: []Skill{
			{Name: "JavaScript", Level: 95},
			{Name: "React", Level: 90},
			{Name: "Node.js", Level: 85},
		},
		Projects: []Project{
			{
				Name:         "E-commerce Platform",
				Description:  "Built a full-stack e-commerce platform with React, Node.js, and Stripe integration",
				Technologies: "React, Node.js, MongoDB, Stripe API",
				Link:         "github.com/alex/ecommerce-platform",
			},
		},
	}
}
