// Package messenger generates the lead's outreach message: a "data-locked"
// template by default, or an LLM-generated message when a credential is
// configured and the lead carries enough context, per spec.md §4.4. The
// message must never state a fact that isn't present in the lead's known
// fields.
package messenger

import (
	"fmt"
	"net/url"
	"strings"
)

// industryTemplates maps a normalized industry key (lowercase, spaces
// stripped) to its dedicated template. Industries outside this set use
// the generic-with-industry template.
var industryTemplates = map[string]func(company string) string{
	"software":   softwareTemplate,
	"consulting": consultingTemplate,
	"ecommerce":  ecommerceTemplate,
}

func normalizeIndustryKey(industry string) string {
	return strings.ToLower(strings.ReplaceAll(industry, " ", ""))
}

func softwareTemplate(company string) string {
	return fmt.Sprintf(
		"Hi %s team,\n\nI came across %s and was impressed by what you've built in the software space. "+
			"We work with software companies on exactly the kind of growth challenges you're likely facing, "+
			"and I'd love to find 15 minutes to learn more about your roadmap.\n\nBest,\nThe LeadPipe Team",
		company, company)
}

func consultingTemplate(company string) string {
	return fmt.Sprintf(
		"Hi %s team,\n\nI've been following %s's work in the consulting space and wanted to reach out. "+
			"We partner with consulting firms to help them scale their client pipeline, and I think there could "+
			"be a good fit here.\n\nBest,\nThe LeadPipe Team",
		company, company)
}

func ecommerceTemplate(company string) string {
	return fmt.Sprintf(
		"Hi %s team,\n\nI noticed %s is building in e-commerce and wanted to connect. "+
			"We help e-commerce companies like yours grow their customer base, and I'd welcome the chance to "+
			"share how.\n\nBest,\nThe LeadPipe Team",
		company, company)
}

func genericWithIndustryTemplate(company, industry string) string {
	return fmt.Sprintf(
		"Hi %s team,\n\nI came across %s and wanted to reach out given your work in %s. "+
			"I'd love to learn more about what you're building and see if there's a fit for us to work "+
			"together.\n\nBest,\nThe LeadPipe Team",
		company, company, industry)
}

func genericCompanyTemplate(company string) string {
	return fmt.Sprintf(
		"Hi %s team,\n\nI came across %s and wanted to reach out directly. "+
			"I'd love to learn more about what you're building and explore whether there's a fit for us to work "+
			"together.\n\nBest,\nThe LeadPipe Team",
		company, company)
}

func websiteOnlyTemplate(website string) string {
	label := website
	if u, err := url.Parse(website); err == nil && u.Hostname() != "" {
		label = strings.TrimPrefix(u.Hostname(), "www.")
	}
	return fmt.Sprintf(
		"Hi there,\n\nI came across %s and wanted to reach out. "+
			"I'd love to learn more about what you're building and see if there's a fit for us to work "+
			"together.\n\nBest,\nThe LeadPipe Team",
		label)
}

// renderTemplate implements the template-selection table in spec.md §4.4:
// company_name+industry picks an industry-keyed template (falling back to
// the generic-with-industry template for an unrecognized industry),
// company_name alone picks the generic-company template, and neither
// falls back to the website-only template.
func renderTemplate(companyName, industry, website string) string {
	switch {
	case companyName != "" && industry != "":
		key := normalizeIndustryKey(industry)
		if tmpl, ok := industryTemplates[key]; ok {
			return tmpl(companyName)
		}
		return genericWithIndustryTemplate(companyName, industry)
	case companyName != "":
		return genericCompanyTemplate(companyName)
	default:
		return websiteOnlyTemplate(website)
	}
}
