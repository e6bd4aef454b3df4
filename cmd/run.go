package cmd

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/endgame-sim/endgame-sim/sim"
)

var (
	configPath       string    // Scenario definition (YAML)
	startTime        float64   // Simulation start time (years)
	endTime          float64   // Simulation end time (years)
	samplingInterval float64   // Fixed sampling interval (years), 0 disables
	samplingYears    []float64 // Explicit sample years
	checkpointOut    string    // Write a checkpoint here after the run
	checkpointIn     string    // Resume from this checkpoint
	reseedPath       string    // Optional fresh scenario applied after restore
)

// runCmd runs the built-in demo model through a scenario definition.
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a scenario from a definition file",
	Run: func(cmd *cobra.Command, args []string) {
		if configPath == "" {
			logrus.Fatalf("No scenario definition provided (--config)")
		}
		def, err := sim.LoadDefinitionFile(configPath)
		if err != nil {
			logrus.Fatalf("Loading %s: %v", configPath, err)
		}
		endgame, err := sim.NewEndgame(sim.EndgameConfig{
			Model:      wormModel,
			Convert:    sim.ChangesConverter(wormSchema),
			Schema:     wormSchema,
			StartTime:  startTime,
			Definition: def,
			Verbose:    verbose,
			Debug:      debug,
		})
		if err != nil {
			logrus.Fatalf("Building controller: %v", err)
		}
		drive(endgame)
	},
}

// resumeCmd restores a checkpoint and continues the run.
var resumeCmd = &cobra.Command{
	Use:   "resume",
	Short: "Resume a run from a checkpoint",
	Run: func(cmd *cobra.Command, args []string) {
		if checkpointIn == "" {
			logrus.Fatalf("No checkpoint provided (--checkpoint)")
		}
		endgame, err := sim.RestoreEndgameFile(checkpointIn, sim.EndgameConfig{
			Model:   wormModel,
			Convert: sim.ChangesConverter(wormSchema),
			Schema:  wormSchema,
			Verbose: verbose,
			Debug:   debug,
		})
		if err != nil {
			logrus.Fatalf("Restoring %s: %v", checkpointIn, err)
		}
		if reseedPath != "" {
			def, err := sim.LoadDefinitionFile(reseedPath)
			if err != nil {
				logrus.Fatalf("Loading %s: %v", reseedPath, err)
			}
			if err := endgame.Reseed(def); err != nil {
				logrus.Fatalf("Re-seeding from %s: %v", reseedPath, err)
			}
		}
		drive(endgame)
	},
}

// drive advances the controller to endTime, printing samples when a
// sampling policy is set, and writes the checkpoint if requested.
func drive(endgame *sim.Endgame) {
	sampling := sim.Sampling{Interval: samplingInterval, Years: samplingYears}
	if sampling.Interval == 0 && len(sampling.Years) == 0 {
		if err := endgame.Run(endTime); err != nil {
			logrus.Fatalf("Run failed: %v", err)
		}
	} else {
		cur, err := endgame.Iterate(endTime, sampling)
		if err != nil {
			logrus.Fatalf("Iterate failed: %v", err)
		}
		for cur.Next() {
			w := cur.State().(*wormState)
			logrus.Infof("[t=%0.4f] burden=%0.6f steps=%d", w.time, w.burden, w.steps)
		}
		if err := cur.Err(); err != nil {
			logrus.Fatalf("Iterate failed: %v", err)
		}
	}
	w := endgame.Simulation().State().(*wormState)
	logrus.Infof("Finished at t=%0.4f: burden=%0.6f steps=%d", w.time, w.burden, w.steps)
	if checkpointOut != "" {
		if err := endgame.SaveFile(checkpointOut); err != nil {
			logrus.Fatalf("Writing checkpoint %s: %v", checkpointOut, err)
		}
		logrus.Infof("Checkpoint written to %s", checkpointOut)
	}
}

func init() {
	runCmd.Flags().StringVar(&configPath, "config", "", "Scenario definition file (YAML)")
	runCmd.Flags().Float64Var(&startTime, "start-time", 0, "Start time in years")
	runCmd.Flags().Float64Var(&endTime, "end-time", 10, "End time in years")
	runCmd.Flags().Float64Var(&samplingInterval, "sampling-interval", 0, "Sample every N years (0 disables)")
	runCmd.Flags().Float64SliceVar(&samplingYears, "sampling-years", nil, "Explicit sample years")
	runCmd.Flags().StringVar(&checkpointOut, "checkpoint-out", "", "Write a checkpoint after the run")
	rootCmd.AddCommand(runCmd)

	resumeCmd.Flags().StringVar(&checkpointIn, "checkpoint", "", "Checkpoint file to resume from")
	resumeCmd.Flags().StringVar(&reseedPath, "config", "", "Fresh scenario definition applied after restore")
	resumeCmd.Flags().Float64Var(&endTime, "end-time", 10, "End time in years")
	resumeCmd.Flags().Float64Var(&samplingInterval, "sampling-interval", 0, "Sample every N years (0 disables)")
	resumeCmd.Flags().Float64SliceVar(&samplingYears, "sampling-years", nil, "Explicit sample years")
	resumeCmd.Flags().StringVar(&checkpointOut, "checkpoint-out", "", "Write a checkpoint after the run")
	rootCmd.AddCommand(resumeCmd)
}
