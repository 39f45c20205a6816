package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fatih/color"

	"github.com/sitewatch/sitewatch/internal/models"
	"github.com/sitewatch/sitewatch/pkg/scheduler"
	"github.com/sitewatch/sitewatch/pkg/service"
)

type console struct {
	service   *service.CrawlService
	scheduler *scheduler.Scheduler
	semantic  bool
	crawled   *int32

	scanner *bufio.Scanner
}

func (c *console) loop() error {
	c.scanner = bufio.NewScanner(os.Stdin)

	color.Cyan("\nsitewatch - scheduled website monitoring")

	for {
		fmt.Println()
		color.White("1. Add source")
		color.White("2. List sources")
		color.White("3. Crawl source")
		color.White("4. Crawl all sources")
		color.White("5. Search documents")
		color.White("6. Statistics")
		color.White("7. Delete source")
		color.White("8. Quit")

		choice := c.prompt("Choice: ")
		switch choice {
		case "1":
			c.addSource()
		case "2":
			c.listSources()
		case "3":
			c.crawlSource()
		case "4":
			c.crawlAll()
		case "5":
			c.search()
		case "6":
			c.statistics()
		case "7":
			c.deleteSource()
		case "8", "q", "exit", "quit":
			return nil
		case "":
			return nil // stdin closed
		default:
			color.Yellow("Unknown choice %q", choice)
		}
	}
}

func (c *console) prompt(label string) string {
	color.New(color.FgGreen).Printf("%s", label)
	if !c.scanner.Scan() {
		return ""
	}
	return strings.TrimSpace(c.scanner.Text())
}

func (c *console) addSource() {
	src := &models.Source{
		URL:     c.prompt("URL: "),
		Enabled: true,
	}

	src.Frequency = models.Frequency(c.prompt("Frequency (hourly/daily/weekly/monthly) [daily]: "))
	src.ScheduleTime = c.prompt("Schedule time HH:MM [09:00]: ")

	if raw := c.prompt("Max pages [100]: "); raw != "" {
		hits, err := strconv.Atoi(raw)
		if err != nil {
			color.Red("Not a number: %s", raw)
			return
		}
		src.MaxHits = hits
	}

	if raw := c.prompt("Content types, comma separated (html,xml,pdf,text) [html,text]: "); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			src.ContentTypes = append(src.ContentTypes, models.ContentType(strings.TrimSpace(part)))
		}
	}

	id, err := c.service.AddSource(context.Background(), src)
	if err != nil {
		color.Red("Error: %v", err)
		return
	}
	if err := c.scheduler.Register(src); err != nil {
		color.Red("Error: %v", err)
		return
	}
	color.Green("✓ Source added: %s", id)
	if next, ok := c.scheduler.NextRun(id); ok {
		color.Blue("  next crawl %s", next.Format("2006-01-02 15:04"))
	}
}

func (c *console) listSources() {
	sources, err := c.service.ListSources(context.Background(), false)
	if err != nil {
		color.Red("Error: %v", err)
		return
	}
	if len(sources) == 0 {
		color.Yellow("No sources registered")
		return
	}

	for _, src := range sources {
		state := color.YellowString(string(src.Status))
		switch src.Status {
		case models.StatusCompleted:
			state = color.GreenString(string(src.Status))
		case models.StatusFailed:
			state = color.RedString(string(src.Status))
		}

		last := "never"
		if src.LastCrawl != nil {
			last = src.LastCrawl.Format("2006-01-02 15:04")
		}
		enabled := ""
		if !src.Enabled {
			enabled = color.YellowString(" (disabled)")
		}
		fmt.Printf("%s  %s  %s/%s  %s  last: %s%s\n",
			src.ID, src.URL, src.Frequency, src.ScheduleTime, state, last, enabled)
	}
}

func (c *console) crawlSource() {
	id := c.prompt("Source ID: ")
	if id == "" {
		return
	}
	c.runCrawl(func(ctx context.Context) (int, error) {
		return c.service.CrawlSource(ctx, id)
	})
}

func (c *console) crawlAll() {
	c.runCrawl(c.service.CrawlAll)
}

// runCrawl renders live progress from the shared page counter while the
// crawl runs.
func (c *console) runCrawl(crawl func(context.Context) (int, error)) {
	atomic.StoreInt32(c.crawled, 0)
	bar := getProgressBar(-1, "🌐 Crawling...")

	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-done:
				return
			case <-time.After(100 * time.Millisecond):
				bar.Set(int(atomic.LoadInt32(c.crawled)))
			}
		}
	}()

	count, err := crawl(context.Background())
	close(done)
	bar.Finish()
	fmt.Println()

	if err != nil {
		color.Red("Error: %v", err)
		return
	}
	color.Green("✓ Stored %d documents", count)
}

func (c *console) search() {
	query := c.prompt("Query: ")
	if query == "" {
		return
	}

	mode := "keyword"
	if c.semantic {
		if m := c.prompt("Mode (keyword/semantic) [keyword]: "); m == "semantic" {
			mode = "semantic"
		}
	}

	var (
		docs []models.Document
		err  error
	)
	if mode == "semantic" {
		docs, err = c.service.SearchSemantic(context.Background(), query, 10)
	} else {
		docs, err = c.service.Search(context.Background(), query, 10)
	}
	if err != nil {
		color.Red("Error: %v", err)
		return
	}
	if len(docs) == 0 {
		color.Yellow("No results")
		return
	}

	for _, doc := range docs {
		color.Cyan("%s", doc.Title)
		fmt.Printf("  %s\n", doc.URL)
		fmt.Printf("  %s\n", excerpt(doc.Content, 160))
	}
}

// excerpt shortens s to at most max characters, counted in runes so
// multi-byte text is never cut mid-character.
func excerpt(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}

func (c *console) statistics() {
	stats, err := c.service.Statistics(context.Background())
	if err != nil {
		color.Red("Error: %v", err)
		return
	}
	fmt.Printf("Sources:   %d (%d enabled)\n", stats.TotalSources, stats.EnabledSources)
	fmt.Printf("Documents: %d\n", stats.TotalDocuments)
}

func (c *console) deleteSource() {
	id := c.prompt("Source ID: ")
	if id == "" {
		return
	}
	deleted, err := c.service.DeleteSource(context.Background(), id)
	if err != nil {
		color.Red("Error: %v", err)
		return
	}
	if !deleted {
		color.Yellow("No such source")
		return
	}
	c.scheduler.Unregister(id)
	color.Green("✓ Source and its documents deleted")
}
