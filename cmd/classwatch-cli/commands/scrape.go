package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/Haydos1210/ClassAvailabilityUNSW/lib/configutil"
	"github.com/Haydos1210/ClassAvailabilityUNSW/lib/htmlutil"
	"github.com/Haydos1210/ClassAvailabilityUNSW/lib/scrapers/timetable"
	"github.com/Haydos1210/ClassAvailabilityUNSW/lib/timezone"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var (
	scrapeYear    *int
	scrapeTerm    *string
	scrapeConfig  *string
	scrapeCourses *[]string
	scrapeJSON    *bool
	scrapeBackend *string
)

func init() {
	scrapeYear = scrapeCmd.Flags().Int("year", timezone.CurrentYear(), "The timetable year.")
	scrapeTerm = scrapeCmd.Flags().String("term", "T1", "The term, one of SUMMER, T1, T2, T3.")
	scrapeConfig = scrapeCmd.Flags().String("config", "config.json5", "The scraper config, a missing file means defaults.")
	scrapeCourses = scrapeCmd.Flags().StringArray("course", nil, "A course and its classes, COMP1511=9301,9313. Repeatable.")
	scrapeJSON = scrapeCmd.Flags().Bool("json", false, "Print the raw JSON result.")
	scrapeBackend = scrapeCmd.Flags().String("backend", "", "Override the configured backend (chrome or static).")
	rootCmd.AddCommand(scrapeCmd)
}

// ParseCourse reads "COMP1511=9301,9313".
func ParseCourse(value string) (timetable.TargetCourse, error) {
	code, ids, found := strings.Cut(value, "=")
	code = strings.TrimSpace(code)
	if code == "" {
		return timetable.TargetCourse{}, fmt.Errorf("course %q has no course code", value)
	}
	course := timetable.TargetCourse{CourseCode: code, TargetClassIDs: []string{}}
	if !found {
		return course, nil
	}
	for _, id := range strings.Split(ids, ",") {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		course.TargetClassIDs = append(course.TargetClassIDs, id)
	}
	return course, nil
}

// same file the server reads, only the scraper section matters here
type fileConfig struct {
	Scraper timetable.Config `json:"scraper"`
}

func loadConfig(path string) (timetable.Config, error) {
	config, err := configutil.ReadConfig[fileConfig](path)
	if errors.Is(err, os.ErrNotExist) {
		slog.Debug("no config found, using defaults", "path", path)
		return timetable.Config{}.WithDefaults(), nil
	}
	if err != nil {
		return timetable.Config{}, err
	}
	return config.Scraper.WithDefaults(), nil
}

func renderResult(out io.Writer, result timetable.Result) {
	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.AppendHeader(table.Row{"Course", "Class", "Activity", "Date"})
	for _, class := range result.Classes {
		t.AppendRow(table.Row{
			class.CourseCode,
			class.ClassID,
			htmlutil.NormalizeText(class.Activity),
			htmlutil.NormalizeText(class.Date),
		})
	}
	t.AppendFooter(table.Row{
		"", "", "Updated",
		result.LastUpdated.In(timezone.Location).Format("2006-01-02 15:04:05"),
	})
	t.SetStyle(table.StyleRounded)
	t.Render()
}

var scrapeCmd = &cobra.Command{
	Use:   "scrape [--year <year>] [--term <term>] [--course <code>=<id>,<id>]... [--json]",
	Short: "Scrapes the timetable and lists the target classes that still have seats.",
	RunE: func(cmd *cobra.Command, args []string) error {
		config, err := loadConfig(*scrapeConfig)
		if err != nil {
			return err
		}
		if *scrapeBackend != "" {
			config.Backend = timetable.Backend(*scrapeBackend)
		}

		courses := config.Courses
		if len(*scrapeCourses) > 0 {
			courses = nil
			for _, value := range *scrapeCourses {
				course, err := ParseCourse(value)
				if err != nil {
					return err
				}
				courses = append(courses, course)
			}
		}
		if len(courses) == 0 {
			return errors.New("no courses given, pass --course or list them under courses in the config")
		}

		launcher, err := config.Launcher()
		if err != nil {
			return err
		}
		scraper := timetable.NewScraper(launcher, config)

		result, err := scraper.ScrapeCourses(cmd.Context(), *scrapeYear, *scrapeTerm, courses)
		if err != nil {
			return fmt.Errorf("%s failure: %w", timetable.FailureKind(err), err)
		}

		if *scrapeJSON {
			encoder := json.NewEncoder(cmd.OutOrStdout())
			encoder.SetIndent("", "  ")
			return encoder.Encode(result)
		}
		renderResult(cmd.OutOrStdout(), result)
		return nil
	},
}
