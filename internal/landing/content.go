package landing

// Quote is the header quotation.
type Quote struct {
	Text   string
	Author string
}

// Item is a list entry with an optional bold lead-in.
type Item struct {
	Title string
	Body  string
}

// Card is a titled block of copy.
type Card struct {
	Title string
	Body  string
}

// Section is one headed block of the landing page. Any of Body, Items and
// Cards may be empty.
type Section struct {
	Title string
	Body  string
	Items []Item
	Cards []Card
}

type Footer struct {
	Owner string
	Phone string
	Email string
}

// Content is the landing page copy. Year is filled in per request.
type Content struct {
	Quote    Quote
	Heading  string
	Sections []Section
	Footer   Footer
	Year     int
}

// DefaultContent is the portal's informational copy.
func DefaultContent() Content {
	return Content{
		Quote: Quote{
			Text:   "Life is the most difficult exam. Many people fail because they try to copy others. Not realizing that everyone has a different question paper.",
			Author: "Dr. A.P.J. Abdul Kalam",
		},
		Heading: "Welcome To PMSSS Portal",
		Sections: []Section{
			{
				Title: "Objective",
				Body:  "Develop a fully digital system for the Prime Minister's Special Scholarship Scheme (PMSSS) to streamline document submission, verification, and disbursement.",
			},
			{
				Title: "Key Components",
				Items: []Item{
					{Title: "Automated Workflow", Body: "Automatic routing of documents to SAG Bureau and Finance Bureau for verification and payment."},
					{Title: "Real-Time Tracking & Notification", Body: "Monitor submission progress and receive instant updates on verification and payment status, along with automated alerts for document verification and scholarship eligibility."},
					{Title: "Secure Verification System & Data Privacy", Body: "Employs AI-driven mechanisms to authenticate student identities and verify document legitimacy while ensuring compliance with data privacy laws and safeguarding personal information through robust security protocols."},
				},
			},
			{
				Title: "Innovation & Uniqueness",
				Cards: []Card{
					{Title: "Reduces Processing Time", Body: "By automating the entire verification and disbursement workflow, the system drastically cuts processing delays, ensuring faster scholarship approvals and disbursements."},
					{Title: "Eliminates Paperwork", Body: "Transitioning to a paperless model not only helps in reducing the environmental footprint but also mitigates risks related to document loss, misplacement, or physical damage."},
					{Title: "Improves Transparency", Body: "The system allows students to track their documents in real-time, providing visibility into each step of the approval process and reducing uncertainty and anxiety about scholarship status."},
					{Title: "Streamlines Communication", Body: "Automated notifications keep students informed about updates and changes, reducing the need for frequent follow-ups and inquiries, thus saving time for both students and administrators."},
				},
			},
			{
				Title: "Feasibility",
				Cards: []Card{
					{Title: "Technical Feasibility", Body: "The project is feasible using technologies like HTML, CSS, JavaScript, Django, along with SQLite for secure databases. Deployment on government servers ensures full control over data."},
					{Title: "Operational Feasibility", Body: "The increasing familiarity of students with digital platforms and the potential for collaboration with government agencies suggest a high likelihood of successful adoption and integration with existing scholarship management systems."},
				},
			},
			{
				Title: "Potential Challenges",
				Items: []Item{
					{Body: "Resistance to change"},
					{Body: "Data privacy concerns"},
					{Body: "Infrastructure limitations"},
					{Body: "Integration issues"},
				},
			},
			{
				Title: "Strategies for Overcoming Challenges",
				Cards: []Card{
					{Title: "User Training and Support", Body: "Extensive training, video tutorials, and 24/7 customer support will ensure a smooth transition and user assistance."},
					{Title: "Enhanced Security Measures", Body: "Implement end-to-end encryption, regular audits, and multi-factor authentication to protect sensitive student data and ensure compliance."},
					{Title: "Offline Capabilities and Inclusivity", Body: "Offline form completion with automatic syncing and a mobile-friendly app will address internet access and digital literacy issues."},
				},
			},
			{
				Title: "More",
				Cards: []Card{
					{Title: "About PMSSS", Body: "Do you know about PMSSS Scholarship? This section leads you to know about the scheme and process for applying to the scheme."},
					{Title: "Grievance Registration", Body: "Are you facing any trouble to get benefit from PMSSS? You can register any kind of grievance from this section."},
				},
			},
		},
		Footer: Footer{
			Owner: "PMSSS Portal",
			Phone: "+1 (234) 567-890",
			Email: "support@pmsss.gov",
		},
	}
}
