package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"voice-resume-backend/resume/convert"
	"voice-resume-backend/resume/model"
	"voice-resume-backend/resume/render"
	"voice-resume-backend/resume/templates"
)

func main() {
	templateDir := flag.String("templates", "templates/docx", "directory holding DOCX templates")
	templateName := flag.String("template", "Creative.docx", "template file name")
	dataPath := flag.String("data", "", "JSON file with parsed resume data (optional; a sample is used otherwise)")
	imagePath := flag.String("image", "", "profile photo (png, jpeg or gif; optional)")
	outPath := flag.String("out", "./out/sample_resume.docx", "output path for generated DOCX")
	pdf := flag.Bool("pdf", false, "also convert the DOCX to PDF with soffice")
	soffice := flag.String("soffice", convert.DefaultSofficePath, "soffice binary used for -pdf")
	flag.Parse()

	data, err := loadData(*dataPath)
	if err != nil {
		exitErr("read data: %v", err)
	}

	tpl, err := templates.New(*templateDir).Load(*templateName)
	if err != nil {
		exitErr("load template: %v", err)
	}

	var img *render.Image
	if *imagePath != "" {
		if img, err = render.LoadImage(*imagePath); err != nil {
			exitErr("load image: %v", err)
		}
	}

	docx, err := render.Render(tpl, model.BuildContext(data), img)
	if err != nil {
		exitErr("render failed: %v", err)
	}

	if err := os.MkdirAll(filepath.Dir(*outPath), 0o755); err != nil {
		exitErr("create output dir: %v", err)
	}
	if err := os.WriteFile(*outPath, docx, 0o644); err != nil {
		exitErr("write docx: %v", err)
	}
	fmt.Printf("OK: wrote %s\n", *outPath)

	if !*pdf {
		return
	}
	conv := convert.New(*soffice, 2*time.Minute)
	pdfPath, pages, err := conv.ToPDF(context.Background(), *outPath, filepath.Dir(*outPath))
	if err != nil {
		exitErr("convert to pdf: %v", err)
	}
	fmt.Printf("OK: wrote %s (%d pages)\n", pdfPath, pages)
}

func loadData(path string) (map[string]any, error) {
	if path == "" {
		return sampleData(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var data map[string]any
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, err
	}
	return data, nil
}

// sampleData has the shape /parse_resume returns.
func sampleData() map[string]any {
	return map[string]any{
		"NAME": map[string]any{"NAME": "Asha Verma", "TITLE": "Electrician"},
		"CONTACT": map[string]any{
			"PHONE":   "+91 98765 43210",
			"EMAIL":   "asha.verma@example.com",
			"WEBSITE": "",
		},
		"LOCATION": map[string]any{"ADDRESS": "Sector 12, Noida, Uttar Pradesh"},
		"EDUCATION": []any{
			map[string]any{"EDU_YEAR": "2014", "DEGREE": "ITI Electrician", "UNIVERSITY": "Government ITI Noida", "EDU_DESC": "Two-year trade certificate"},
		},
		"EXPERIENCE": []any{
			map[string]any{"EXP_YEAR": "2016 - Present", "EXP_JOB_TITLE": "Site Electrician", "EXP_COMPANY": "Shakti Builders", "EXP_DESC": "Wiring and panel installation for residential towers"},
			map[string]any{"EXP_YEAR": "2014 - 2016", "EXP_JOB_TITLE": "Apprentice", "EXP_COMPANY": "Noida Power Co.", "EXP_DESC": "Meter installation and maintenance"},
		},
		"AWARDS": []any{
			map[string]any{"AWARD_TITLE": "Safety Star 2019", "AWARD_DESC": "Zero incidents across three projects"},
		},
		"SKILLS":    []any{"House wiring", "Panel installation", "Fault finding"},
		"INTERESTS": []any{"Cricket", "Gardening"},
	}
}

func exitErr(format string, args ...any) {
	_, _ = fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
