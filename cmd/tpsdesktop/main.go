// Command tpsdesktop is the ebiten-backed host: it wires the crt/graph/
// mouse native modules to a real window, keyboard and pointer, driving
// the p-machine's Step(budget) from Game.Update() the way the teacher's
// cmd/desktop/main.go drives its CPU's Step() from the same hook -- the
// "host's event dispatcher" spec §5 describes.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"

	"tps3/pkg/modules/crt"
	"tps3/pkg/modules/graph"
	"tps3/pkg/modules/mouse"
	"tps3/pkg/pipeline"
	"tps3/pkg/pmachine"
)

const stepBudgetPerFrame = 20000

type Game struct {
	m *pmachine.Machine

	crtMod    *crt.Module
	graphMod  *graph.Module
	mouseMod  *mouse.Module
	usesCrt   bool
	usesGraph bool

	graphicsImg *ebiten.Image
}

func (g *Game) Update() error {
	for _, r := range ebiten.AppendInputChars(nil) {
		g.m.PushKey(r)
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyEnter) {
		g.m.PushKey('\n')
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyBackspace) {
		g.m.PushKey(8)
	}

	mx, my := ebiten.CursorPosition()
	g.mouseMod.SetPosition(mx, my)
	g.mouseMod.SetButton(0, ebiten.IsMouseButtonPressed(ebiten.MouseButtonLeft))
	g.mouseMod.SetButton(1, ebiten.IsMouseButtonPressed(ebiten.MouseButtonRight))
	g.mouseMod.SetButton(2, ebiten.IsMouseButtonPressed(ebiten.MouseButtonMiddle))

	if g.m.State() == pmachine.Running {
		g.m.Step(stepBudgetPerFrame)
	}
	return nil
}

func (g *Game) Draw(screen *ebiten.Image) {
	if g.usesGraph {
		if g.graphicsImg == nil {
			g.graphicsImg = ebiten.NewImage(graph.Width, graph.Height)
		}
		g.graphicsImg.WritePixels(g.graphMod.FramebufferRGBA())
		op := &ebiten.DrawImageOptions{}
		op.GeoM.Scale(2, 2)
		screen.DrawImage(g.graphicsImg, op)
		return
	}

	if g.usesCrt {
		for y := 0; y < crt.Rows; y++ {
			var row strings.Builder
			for x := 0; x < crt.Cols; x++ {
				row.WriteRune(g.crtMod.Cell(x, y).Ch)
			}
			ebitenutil.DebugPrintAt(screen, row.String(), 0, y*12)
		}
	}
}

func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	if g.usesGraph {
		return graph.Width * 2, graph.Height * 2
	}
	return crt.Cols * 7, crt.Rows * 12
}

// snapshotSyncer periodically persists the machine's paused state to
// storagePath, the way the teacher's cmd/desktop/main.go
// startDiskSyncer flushes its VFS to disk on a ticker -- here repurposed
// (pkg/pmachine/snapshot.go) to persist p-machine register/data-store
// state instead of a virtual filesystem.
func snapshotSyncer(m *pmachine.Machine, storagePath string, interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			persistSnapshot(m, storagePath)
		case <-stop:
			return
		}
	}
}

func persistSnapshot(m *pmachine.Machine, storagePath string) {
	data, err := m.Snapshot()
	if err != nil {
		fmt.Fprintln(os.Stderr, "tpsdesktop: snapshot:", err)
		return
	}
	if err := os.WriteFile(storagePath, data, 0o644); err != nil {
		fmt.Fprintln(os.Stderr, "tpsdesktop: persisting snapshot:", err)
	}
}

func main() {
	inPath := flag.String("in", "", "source file to compile and run (required)")
	storagePath := flag.String("storage", "", "path to persist/restore paused machine state across sessions")
	flag.Parse()
	if *inPath == "" {
		log.Fatalf("tpsdesktop: -in is required")
	}

	src, err := os.ReadFile(*inPath)
	if err != nil {
		log.Fatalf("tpsdesktop: reading %s: %v", *inPath, err)
	}

	modules, crtMod, graphMod, mouseMod := pipeline.DefaultModules()
	bc, err := pipeline.Compile(string(src), modules)
	if err != nil {
		log.Fatalf("tpsdesktop: %v", err)
	}
	reg, err := pipeline.RuntimeRegistry(bc, modules)
	if err != nil {
		log.Fatalf("tpsdesktop: %v", err)
	}

	usesCrt, usesGraph := false, false
	for _, name := range bc.UsedModules {
		switch name {
		case "crt":
			usesCrt = true
		case "graph":
			usesGraph = true
		}
	}

	m := pmachine.New(bc, reg)
	if *storagePath != "" {
		if data, err := os.ReadFile(*storagePath); err == nil {
			if err := m.Restore(data); err != nil {
				log.Fatalf("tpsdesktop: restoring %s: %v", *storagePath, err)
			}
		}
	}
	m.SetOutputCallback(func(line string) {
		if usesCrt {
			crtMod.WriteString(line + "\n")
		} else {
			fmt.Println(line)
		}
	})
	m.SetFinishCallback(func(elapsed time.Duration, err error) {
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
		}
	})

	game := &Game{
		m: m, crtMod: crtMod, graphMod: graphMod, mouseMod: mouseMod,
		usesCrt: usesCrt, usesGraph: usesGraph,
	}

	var stopSyncer chan struct{}
	if *storagePath != "" {
		stopSyncer = make(chan struct{})
		go snapshotSyncer(m, *storagePath, 3*time.Second, stopSyncer)
	}

	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	w, h := game.Layout(0, 0)
	ebiten.SetWindowSize(w, h)
	ebiten.SetWindowTitle("tps3 desktop")
	runErr := ebiten.RunGame(game)

	if stopSyncer != nil {
		close(stopSyncer)
		persistSnapshot(m, *storagePath)
	}
	if runErr != nil {
		log.Fatal(runErr)
	}
}
