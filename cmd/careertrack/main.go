package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/mileusna/crontab"
	"github.com/shopspring/decimal"

	"careertrack.dev/careertrack-go"
	"careertrack.dev/careertrack-go/app/domain/account"
	"careertrack.dev/careertrack-go/app/domain/application"
	"careertrack.dev/careertrack-go/app/domain/notification"
	"careertrack.dev/careertrack-go/app/domain/poller"
	"careertrack.dev/careertrack-go/app/utils/functional"
	"careertrack.dev/careertrack-go/app/utils/logger"
	"careertrack.dev/careertrack-go/app/utils/ptr"
	"careertrack.dev/careertrack-go/config/environment_variables"
)

func main() {
	_ = godotenv.Load()
	environment_variables.EnvironmentVariables.LoadFromEnv()
	log := logger.GetLogger()

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	env := environment_variables.EnvironmentVariables
	client, err := careertrack.New(careertrack.Config{
		BaseURL:     env.CAREERTRACK_API_URL,
		SessionPath: env.CAREERTRACK_SESSION_PATH,
		Timeout:     env.CAREERTRACK_REQUEST_TIMEOUT,
	})
	if err != nil {
		log.Fatalf("creating client: %v", err)
	}
	defer client.Close()

	ctx := context.Background()
	switch os.Args[1] {
	case "login":
		runLogin(ctx, client, os.Args[2:])
	case "apps":
		runApps(ctx, client, os.Args[2:])
	case "watch":
		runWatch(ctx, client)
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: careertrack <login|apps|watch> [flags]")
	fmt.Fprintln(os.Stderr, "  login -email <email> -password <password> [-otp <code>]")
	fmt.Fprintln(os.Stderr, "  apps list [-status <status>]")
	fmt.Fprintln(os.Stderr, "  apps create -company <name> -title <title> [-url <url>] [-salary-min <n>] [-salary-max <n>]")
	fmt.Fprintln(os.Stderr, "  watch")
}

func runLogin(ctx context.Context, client *careertrack.Client, args []string) {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password")
	otp := fs.String("otp", "", "2FA code, if enabled")
	_ = fs.Parse(args)

	err := client.Account.Login(ctx, account.LoginInput{
		Email:    *email,
		Password: *password,
		OTPCode:  *otp,
	})
	if err != nil {
		logger.GetLogger().Fatalf("login failed: %v", err)
	}
	fmt.Println("logged in")
}

func runApps(ctx context.Context, client *careertrack.Client, args []string) {
	if len(args) < 1 {
		usage()
		os.Exit(2)
	}
	log := logger.GetLogger()
	switch args[0] {
	case "list":
		fs := flag.NewFlagSet("apps list", flag.ExitOnError)
		status := fs.String("status", "", "filter by status")
		_ = fs.Parse(args[1:])

		page, err := client.Applications.ListNow(ctx, application.ListFilter{Status: application.Status(*status)})
		if err != nil {
			log.Fatalf("listing applications: %v", err)
		}
		lines := functional.Map(page.Results, func(app application.Application) string {
			fav := " "
			if app.Favorite {
				fav = "*"
			}
			return fmt.Sprintf("%s %4d  %-14s %-24s %s", fav, app.ID, app.Status, app.CompanyName, app.Title)
		})
		for _, line := range lines {
			fmt.Println(line)
		}
		fmt.Printf("%d applications\n", page.Count)
	case "create":
		fs := flag.NewFlagSet("apps create", flag.ExitOnError)
		company := fs.String("company", "", "company name")
		title := fs.String("title", "", "role title")
		url := fs.String("url", "", "job posting URL")
		salaryMin := fs.String("salary-min", "", "salary range lower bound")
		salaryMax := fs.String("salary-max", "", "salary range upper bound")
		_ = fs.Parse(args[1:])

		input := application.CreateInput{
			CompanyName: *company,
			Title:       *title,
			URL:         *url,
		}
		if *salaryMin != "" {
			amount, err := decimal.NewFromString(*salaryMin)
			if err != nil {
				log.Fatalf("invalid -salary-min: %v", err)
			}
			input.SalaryMin = ptr.To(amount)
		}
		if *salaryMax != "" {
			amount, err := decimal.NewFromString(*salaryMax)
			if err != nil {
				log.Fatalf("invalid -salary-max: %v", err)
			}
			input.SalaryMax = ptr.To(amount)
		}

		created, err := client.Applications.Create(ctx, input)
		if err != nil {
			log.Fatalf("creating application: %v", err)
		}
		fmt.Printf("created application %d (%s at %s)\n", created.ID, created.Title, created.CompanyName)
	default:
		usage()
		os.Exit(2)
	}
}

// runWatch polls the unread notification count once a minute, the cheapest
// way to keep a terminal session informed without a push channel.
func runWatch(ctx context.Context, client *careertrack.Client) {
	log := logger.GetLogger()
	watcher := poller.NewService(client.Notifications, func(count notification.UnreadCount) {
		log.Infof("watch: %d unread notifications", count.Count)
	})

	ctab := crontab.New()
	watcher.Start(ctx, ctab)
	log.Info("watching for notifications; ctrl-c to stop")
	select {}
}
