package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const templDir = "./internal/templates"

var binaries = map[string]string{
	"bin/visits-dashboard": "./cmd/server",
	"bin/dashctl":          "./cmd/dashctl",
}

// Generate regenerates the *_templ.go files from the .templ sources. The
// generated files are committed, so this is only needed after editing a
// template.
func Generate() error {
	if err := needTempl(); err != nil {
		return err
	}
	fmt.Println(">> templ generate", templDir)
	return sh.Run("templ", "generate", "-path", templDir)
}

// Build regenerates templates, tidies deps, then compiles the server and the
// CLI into ./bin.
func Build() error {
	mg.Deps(Generate, Tidy)
	for out, pkg := range binaries {
		fmt.Println(">> Building", out, "...")
		// go-sqlite3 needs cgo
		if err := sh.RunWith(map[string]string{"CGO_ENABLED": "1"}, "go", "build", "-o", out, pkg); err != nil {
			return err
		}
	}
	return nil
}

// Run builds then executes the server binary.
func Run() error {
	mg.Deps(Build)
	fmt.Println(">> Starting server on :" + port() + " ...")
	return sh.Run("./bin/visits-dashboard")
}

// Dev starts the server via go run and stops it on Ctrl-C.
func Dev() error {
	mg.Deps(Generate)
	fmt.Println(">> Dev mode: go run ./cmd/server ...")
	server := exec.Command("go", "run", "./cmd/server")
	server.Stdout = os.Stdout
	server.Stderr = os.Stderr
	server.Env = append(os.Environ(), "PORT="+port(), "LOG_LEVEL=debug")
	if err := server.Start(); err != nil {
		return fmt.Errorf("start server: %w", err)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	done := make(chan error, 1)
	go func() { done <- server.Wait() }()

	select {
	case err := <-done:
		return err
	case <-quit:
		fmt.Println("\n>> Shutting down...")
		server.Process.Signal(syscall.SIGTERM)
		return <-done
	}
}

// Watch keeps templ generate running alongside the server so template edits
// show up without a restart.
func Watch() error {
	if err := needTempl(); err != nil {
		return err
	}
	mg.Deps(Generate)

	watcher := exec.Command("templ", "generate", "-watch", "-path", templDir,
		"-proxy", "http://localhost:"+port(), "-cmd", "go run ./cmd/server")
	watcher.Stdout = os.Stdout
	watcher.Stderr = os.Stderr
	watcher.Env = append(os.Environ(), "PORT="+port(), "LOG_LEVEL=debug")
	if err := watcher.Start(); err != nil {
		return fmt.Errorf("start templ watcher: %w", err)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	fmt.Println("\n>> Stopping watcher...")
	watcher.Process.Signal(syscall.SIGTERM)
	return watcher.Wait()
}

func needTempl() error {
	if _, err := exec.LookPath("templ"); err != nil {
		fmt.Println(">> templ not found; install with:")
		fmt.Println("   go install github.com/a-h/templ/cmd/templ@v0.3.1001")
		return err
	}
	return nil
}

// Tidy runs go mod tidy.
func Tidy() error {
	fmt.Println(">> go mod tidy...")
	return sh.Run("go", "mod", "tidy")
}

// Test regenerates templates then runs all unit tests.
func Test() error {
	mg.Deps(Generate)
	fmt.Println(">> Running tests...")
	return sh.RunV("go", "test", "./...")
}

// Lint runs golangci-lint if available.
func Lint() error {
	if _, err := exec.LookPath("golangci-lint"); err != nil {
		fmt.Println(">> golangci-lint not found; skipping.")
		return nil
	}
	return sh.Run("golangci-lint", "run", "./...")
}

// Clean removes build artifacts and the local SQLite session DB.
func Clean() error {
	fmt.Println(">> Cleaning...")
	if err := os.RemoveAll("bin"); err != nil {
		return err
	}
	db := os.Getenv("DB_PATH")
	if db == "" {
		db = "dashboard.db"
	}
	if err := os.Remove(db); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Install installs both binaries to $GOPATH/bin.
func Install() error {
	mg.Deps(Build)
	return sh.Run("go", "install", "./cmd/server", "./cmd/dashctl")
}

func port() string {
	if p := os.Getenv("PORT"); p != "" {
		return p
	}
	return "8080"
}

func init() {
	err := godotenv.Load()
	if err != nil {
		slog.Warn("error loading .env file", "err", err)
	}
}
